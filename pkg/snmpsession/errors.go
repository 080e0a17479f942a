package snmpsession

import "errors"

var (
	ErrNilDevice           = errors.New("snmpsession: device configuration is nil")
	ErrHostRequired        = errors.New("snmpsession: host is required")
	ErrUnsupportedVersion  = errors.New("snmpsession: unsupported SNMP version")
	ErrConnect             = errors.New("snmpsession: connect failed")
	ErrGet                 = errors.New("snmpsession: get failed")
	ErrWalk                = errors.New("snmpsession: walk failed")
	ErrConvert             = errors.New("snmpsession: value conversion failed")
	ErrSessionNotFound     = errors.New("snmpsession: no open session for device")
)
