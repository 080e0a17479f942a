package snmpsession

import "github.com/fmfleet/txmoncore/pkg/models"

// Device is the connection tuple a session is opened against. It is
// intentionally a plain value type so Manager.Open can compare
// two Devices field-by-field to decide whether a session must be recycled
// (spec.md §4.4, "session recycling").
type Device struct {
	ID        string
	Host      string
	Port      int
	Community string
	Version   models.SNMPVersion
}

// ConnParamsEqual reports whether the connection-affecting fields of two
// devices match. Non-connection fields (ID) are irrelevant to recycling.
func (d Device) ConnParamsEqual(other Device) bool {
	return d.Host == other.Host &&
		d.Port == other.Port &&
		d.Community == other.Community &&
		d.Version == other.Version
}
