package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Branch is a clinic location as listed by the attendance branch endpoint.
type Branch struct {
	ID            string `json:"_id" yaml:"id"`
	Name          string `json:"Branch_name" yaml:"name"`
	Email         string `json:"branch_email" yaml:"email"`
	EmployeeCount int    `json:"employeeCount" yaml:"employeeCount"`
	DeviceCount   int    `json:"deviceCount" yaml:"deviceCount"`
}

// BranchRef is the populated branch reference on devices and employees.
type BranchRef struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"Branch_name" yaml:"name"`
	Email string `json:"branch_email,omitempty" yaml:"email,omitempty"`
}

// DeviceMeta carries the raw iDMS fields the console displays.
type DeviceMeta struct {
	DeviceName string `json:"DeviceName,omitempty" yaml:"deviceName,omitempty"`
}

// Device is one biometric terminal.
type Device struct {
	ID              string      `json:"_id" yaml:"id"`
	SerialNumber    string      `json:"serialNumber" yaml:"serialNumber"`
	Name            string      `json:"name" yaml:"name"`
	Location        string      `json:"location" yaml:"location"`
	Branch          *BranchRef  `json:"branch,omitempty" yaml:"branch,omitempty"`
	BranchAdmin     *BranchRef  `json:"branchAdmin,omitempty" yaml:"-"`
	LastKnownStatus string      `json:"lastKnownStatus" yaml:"lastKnownStatus"`
	LastConnected   *time.Time  `json:"lastConnected" yaml:"lastConnected"`
	LastLogTime     *time.Time  `json:"lastLogTime" yaml:"lastLogTime"`
	Meta            *DeviceMeta `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// DisplayName is the operator label, falling back to the iDMS name.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Meta != nil && d.Meta.DeviceName != "" {
		return d.Meta.DeviceName
	}
	return "Unnamed"
}

// AssignedBranch returns the device's branch, preferring the newer field.
func (d Device) AssignedBranch() *BranchRef {
	if d.Branch != nil {
		return d.Branch
	}
	return d.BranchAdmin
}

// Status returns the last known status or "Unknown".
func (d Device) Status() string {
	if d.LastKnownStatus == "" {
		return "Unknown"
	}
	return d.LastKnownStatus
}

// DevicePage is one server page of devices.
type DevicePage struct {
	Data  []Device `json:"data"`
	Total int      `json:"total"`
}

// CommandType names a device instruction.
type CommandType string

const (
	CommandPullLogs CommandType = "pullLogs"
	CommandSyncTime CommandType = "syncTime"
)

// CommandParams holds the parameters of either command type.
type CommandParams struct {
	From     string `json:"from,omitempty" yaml:"from,omitempty"`
	To       string `json:"to,omitempty" yaml:"to,omitempty"`
	DateTime string `json:"dateTime,omitempty" yaml:"dateTime,omitempty"`
}

// DeviceCommand is one dispatched instruction as recorded by the backend.
type DeviceCommand struct {
	ID            string        `json:"_id" yaml:"id"`
	Type          CommandType   `json:"type" yaml:"type"`
	SerialNumbers []string      `json:"serialNumbers" yaml:"serialNumbers"`
	Params        CommandParams `json:"params" yaml:"params"`
	Status        string        `json:"status" yaml:"status"`
	CreatedAt     *time.Time    `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// CommandList decodes either a bare array or a {data: [...]} envelope.
type CommandList []DeviceCommand

func (l *CommandList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var arr []DeviceCommand
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var env struct {
		Data []DeviceCommand `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*l = env.Data
	return nil
}

// PullLogsRequest is the body of POST /devices/pull-logs.
type PullLogsRequest struct {
	SerialNumbers []string `json:"serialNumbers" validate:"min=1,dive,required"`
	From          string   `json:"from" validate:"required"`
	To            string   `json:"to" validate:"required"`
}

// SyncTimeRequest is the body of POST /devices/sync-time.
type SyncTimeRequest struct {
	SerialNumbers []string `json:"serialNumbers" validate:"min=1,dive,required"`
	DateTime      string   `json:"dateTime" validate:"required"`
}
