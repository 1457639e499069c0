package types

import (
	"evroam/utility"
	"fmt"
)

// AdminStatus is the operator-declared intent for availability.
type AdminStatus string

const (
	AdminStatusUnknown      AdminStatus = "Unknown"
	AdminStatusPlanned      AdminStatus = "Planned"
	AdminStatusInDeployment AdminStatus = "InDeployment"
	AdminStatusOperational  AdminStatus = "Operational"
	AdminStatusInternalUse  AdminStatus = "InternalUse"
	AdminStatusOutOfService AdminStatus = "OutOfService"
)

var adminStatuses = []AdminStatus{
	AdminStatusUnknown,
	AdminStatusPlanned,
	AdminStatusInDeployment,
	AdminStatusOperational,
	AdminStatusInternalUse,
	AdminStatusOutOfService,
}

func (s AdminStatus) IsValid() bool {
	for _, v := range adminStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ParseAdminStatus(s string) (AdminStatus, error) {
	status := AdminStatus(s)
	if !status.IsValid() {
		return AdminStatusUnknown, fmt.Errorf("admin status %q: %w", s, utility.ErrInvalidStatus)
	}
	return status, nil
}

// OperationalStatus is the observed runtime condition.
type OperationalStatus string

const (
	OperationalStatusUnknown   OperationalStatus = "Unknown"
	OperationalStatusAvailable OperationalStatus = "Available"
	OperationalStatusDegraded  OperationalStatus = "Degraded"
	OperationalStatusOffline   OperationalStatus = "Offline"
	OperationalStatusError     OperationalStatus = "Error"
)

var operationalStatuses = []OperationalStatus{
	OperationalStatusUnknown,
	OperationalStatusAvailable,
	OperationalStatusDegraded,
	OperationalStatusOffline,
	OperationalStatusError,
}

func (s OperationalStatus) IsValid() bool {
	for _, v := range operationalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ParseOperationalStatus(s string) (OperationalStatus, error) {
	status := OperationalStatus(s)
	if !status.IsValid() {
		return OperationalStatusUnknown, fmt.Errorf("operational status %q: %w", s, utility.ErrInvalidStatus)
	}
	return status, nil
}
