// Package models pkg/models/models.go defines the domain records shared
// across the persistence store, the metric parser, the poll scheduler and
// the trap receiver.
package models

import (
	"encoding/json"
	"time"
)

// TransmitterStatus is the coarse operational state of a transmitter.
type TransmitterStatus string

const (
	StatusActive   TransmitterStatus = "active"
	StatusStandby  TransmitterStatus = "standby"
	StatusOffline  TransmitterStatus = "offline"
	StatusFault    TransmitterStatus = "fault"
	StatusUnknown  TransmitterStatus = "unknown"
)

// SNMPVersion mirrors the wire enum used by the transmitter's connection
// tuple: 0 for v1, 1 for v2c.
type SNMPVersion int

const (
	SNMPv1  SNMPVersion = 0
	SNMPv2c SNMPVersion = 1
)

// ContactInfo is a technician contact record. Historically some rows stored
// this as a bare email string; NormalizeContactInfo (pkg/db) is responsible
// for reconciling that legacy form into this shape.
type ContactInfo struct {
	Technician string `json:"technician"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Site is a physical transmitter location.
type Site struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Location  string      `json:"location"` // "STATE, District" by convention
	Latitude  *float64    `json:"latitude,omitempty"`
	Longitude *float64    `json:"longitude,omitempty"`
	Address   string      `json:"address,omitempty"`
	Contact   ContactInfo `json:"contact"`
	Timezone  string      `json:"timezone,omitempty"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Transmitter is a polled SNMP endpoint owned by a Site.
type Transmitter struct {
	ID             string            `json:"id"`
	SiteID         string            `json:"siteId"`
	Name           string            `json:"name"`
	Label          string            `json:"label,omitempty"`
	DisplayOrder   int               `json:"displayOrder"`
	NominalFreqMHz float64           `json:"nominalFrequency"`
	NominalPowerW  float64           `json:"nominalPower"`
	Status         TransmitterStatus `json:"status"`
	Vendor         string            `json:"vendor,omitempty"`
	Model          string            `json:"model,omitempty"`

	Host      string      `json:"host"`
	Port      int         `json:"port"`
	Community string      `json:"community"`
	Version   SNMPVersion `json:"version"`
	OIDs      []string    `json:"oids"`

	PollIntervalMS int64 `json:"pollInterval"`
	IsActive       bool  `json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TransmitterMetricData is what the metric parser produces from a raw
// varbind map. Any field may be left at its zero value/nil when the source
// data did not carry it.
type TransmitterMetricData struct {
	PowerOutput     *float64          `json:"powerOutput,omitempty"`
	ForwardPower    *float64          `json:"forwardPower,omitempty"`
	ReflectedPower  *float64          `json:"reflectedPower,omitempty"`
	FrequencyMHz    *float64          `json:"frequency,omitempty"`
	VSWR            *float64          `json:"vswr,omitempty"`
	Temperature     *float64          `json:"temperature,omitempty"`
	AudioLevel      *float64          `json:"audioLevel,omitempty"`
	ExciterTempC    *float64          `json:"exciterTemp,omitempty"`
	Status          TransmitterStatus `json:"status"`
	Raw             map[string]Value  `json:"-"`
	Error           string            `json:"error,omitempty"`
	ProposedName    string            `json:"-"` // radio-name passthrough, not persisted verbatim
}

// TransmitterMetric is the append-only time-series row keyed by
// (transmitter_id, timestamp).
type TransmitterMetric struct {
	TransmitterID  string            `json:"transmitterId"`
	Timestamp      time.Time         `json:"timestamp"`
	PowerOutput    *float64          `json:"powerOutput,omitempty"`
	ForwardPower   *float64          `json:"forwardPower,omitempty"`
	ReflectedPower *float64          `json:"reflectedPower,omitempty"`
	FrequencyMHz   *float64          `json:"frequency,omitempty"`
	VSWR           *float64          `json:"vswr,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	Status         TransmitterStatus `json:"status"`
	Raw            json.RawMessage   `json:"raw,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Varbind is a normalized (OID, type, value) triple as returned by an SNMP
// GET/WALK or received in a trap.
type Varbind struct {
	OID   string `json:"oid"`
	Type  string `json:"type,omitempty"`
	Value Value  `json:"value"`
}

// SnmpTrap is an unsolicited notification received on the trap listener.
type SnmpTrap struct {
	ID              int64     `json:"id"`
	TransmitterID   *string   `json:"transmitterId,omitempty"`
	SiteID          *string   `json:"siteId,omitempty"`
	SourceHost      string    `json:"sourceHost"`
	SourcePort      int       `json:"sourcePort"`
	Community       string    `json:"community,omitempty"`
	Version         SNMPVersion `json:"version"`
	TrapOID         string    `json:"trapOid,omitempty"`
	EnterpriseOID   string    `json:"enterpriseOid,omitempty"`
	Varbinds        []Varbind `json:"varbinds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Alarm is written by an external policy engine; the core only enforces
// its referential constraints.
type Alarm struct {
	ID            string    `json:"id"`
	TransmitterID string    `json:"transmitterId"`
	Severity      string    `json:"severity"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Active        bool      `json:"active"`
	AckedBy       string    `json:"ackedBy,omitempty"`
	AckedAt       *time.Time `json:"ackedAt,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DeviceResult is a single poll outcome recorded by the scheduler, whether
// the poll succeeded or failed.
type DeviceResult struct {
	DeviceID  string                 `json:"deviceId"`
	Timestamp time.Time              `json:"timestamp"`
	Success   bool                   `json:"success"`
	Data      *TransmitterMetricData `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// DeviceStatus is the derived liveness summary for a device (spec.md §4.5).
type DeviceStatus struct {
	Online     bool      `json:"online"`
	LastSeen   time.Time `json:"lastSeen"`
	ErrorCount int       `json:"errorCount"`
}
