// Package trap pkg/trap/normalize.go converts a raw gosnmp trap packet into
// the domain models.SnmpTrap, following the protocol-parsing shape of the
// reference corpus's snmp/trap package: version-specific extraction of the
// trap-identifying OID, then varbind normalization shared by every version.
package trap

import (
	"fmt"
	"net"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// oidSnmpTrapOID is the well-known OID carrying the actual trap identity in
// the second varbind of a v2c/v3 trap PDU.
const oidSnmpTrapOID = "1.3.6.1.6.3.1.1.4.1.0"

// Normalize converts a gosnmp trap packet plus its sender address into a
// models.SnmpTrap. It never returns an error for a malformed but non-nil
// packet — an unrecognized trap still yields a usable, if sparsely
// populated, record (spec.md §4.6: receiver errors are logged, not fatal).
func Normalize(pkt *gosnmp.SnmpPacket, addr *net.UDPAddr) (models.SnmpTrap, error) {
	if pkt == nil {
		return models.SnmpTrap{}, fmt.Errorf("trap: nil packet")
	}

	out := models.SnmpTrap{
		SourceHost: sourceHost(addr),
		SourcePort: sourcePort(addr),
		Community:  pkt.Community,
		Version:    versionOf(pkt.Version),
	}

	switch pkt.Version {
	case gosnmp.Version1:
		out.EnterpriseOID = normalizeOID(fmt.Sprintf("%v", pkt.Enterprise))
		out.TrapOID = v1TrapOID(pkt)
		out.Varbinds = convertVarbinds(pkt.Variables)
	default:
		// v2c and v3 share the leading sysUpTime.0/snmpTrapOID.0 convention.
		trapOID, payload := extractV2TrapOID(pkt.Variables)
		out.TrapOID = trapOID
		out.Varbinds = convertVarbinds(payload)
	}

	return out, nil
}

func sourceHost(addr *net.UDPAddr) string {
	if addr == nil {
		return ""
	}

	return addr.IP.String()
}

func sourcePort(addr *net.UDPAddr) int {
	if addr == nil {
		return 0
	}

	return addr.Port
}

// versionOf maps gosnmp's version enum onto the domain's {0: v1, 1: v2c}
// tuple. v3 traps are surfaced as v2c since the varbind layout matches and
// the domain model has no third slot (spec.md §4.6: "default v2c if
// ambiguous").
func versionOf(v gosnmp.SnmpVersion) models.SNMPVersion {
	if v == gosnmp.Version1 {
		return models.SNMPv1
	}

	return models.SNMPv2c
}

// v1TrapOID synthesizes a trap-identifying OID from the v1 PDU's generic and
// specific trap codes, following RFC 3584 §3.1's v1-to-v2 mapping so v1 and
// v2c traps can be filtered/compared uniformly downstream.
func v1TrapOID(pkt *gosnmp.SnmpPacket) string {
	if pkt.GenericTrap >= 0 && pkt.GenericTrap < 6 {
		return fmt.Sprintf("1.3.6.1.6.3.1.1.5.%d", pkt.GenericTrap+1)
	}

	ent := strings.TrimPrefix(normalizeOID(fmt.Sprintf("%v", pkt.Enterprise)), ".")
	ent = strings.TrimSuffix(ent, ".")

	return fmt.Sprintf("%s.0.%d", ent, pkt.SpecificTrap)
}

// extractV2TrapOID locates snmpTrapOID.0 among the packet's varbinds and
// returns its value plus the remaining payload varbinds. Search rather than
// fixed-index access tolerates agents that omit sysUpTime.0.
func extractV2TrapOID(vars []gosnmp.SnmpPDU) (string, []gosnmp.SnmpPDU) {
	for i, v := range vars {
		if normalizeOID(v.Name) != oidSnmpTrapOID {
			continue
		}

		return normalizeOID(fmt.Sprintf("%v", v.Value)), vars[i+1:]
	}

	// No well-formed trap OID varbind; treat everything as payload rather
	// than failing the whole trap.
	return "", vars
}

// convertVarbinds normalizes each PDU into a models.Varbind, dropping
// protocol-level "no such object/instance" placeholders.
func convertVarbinds(pdus []gosnmp.SnmpPDU) []models.Varbind {
	out := make([]models.Varbind, 0, len(pdus))

	for _, pdu := range pdus {
		if isErrorPDU(pdu.Type) {
			continue
		}

		out = append(out, models.Varbind{
			OID:   normalizeOID(pdu.Name),
			Type:  pduTypeName(pdu.Type),
			Value: convertPDUValue(pdu),
		})
	}

	return out
}

func isErrorPDU(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		return true
	default:
		return false
	}
}

func convertPDUValue(pdu gosnmp.SnmpPDU) models.Value {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return models.BytesValue(b)
		}

		return models.StringValue(fmt.Sprintf("%v", pdu.Value))
	case gosnmp.Integer:
		return models.IntValue(gosnmp.ToBigInt(pdu.Value).Int64())
	case gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32, gosnmp.Counter64:
		return models.IntValue(gosnmp.ToBigInt(pdu.Value).Int64())
	case gosnmp.IPAddress, gosnmp.ObjectIdentifier:
		return models.StringValue(fmt.Sprintf("%v", pdu.Value))
	default:
		return models.StringValue(fmt.Sprintf("%v", pdu.Value))
	}
}

func pduTypeName(t gosnmp.Asn1BER) string {
	switch t {
	case gosnmp.Integer:
		return "Integer"
	case gosnmp.OctetString:
		return "OctetString"
	case gosnmp.ObjectIdentifier:
		return "ObjectIdentifier"
	case gosnmp.IPAddress:
		return "IpAddress"
	case gosnmp.Counter32:
		return "Counter32"
	case gosnmp.Gauge32:
		return "Gauge32"
	case gosnmp.TimeTicks:
		return "TimeTicks"
	case gosnmp.Counter64:
		return "Counter64"
	case gosnmp.Uinteger32:
		return "Unsigned32"
	default:
		return ""
	}
}

// normalizeOID strips a leading dot, if any, so downstream comparisons
// (against the constants in package metric) are consistent regardless of
// how the sending agent formatted the OID.
func normalizeOID(oid string) string {
	oid = strings.TrimSpace(oid)
	return strings.TrimPrefix(oid, ".")
}
