package model

import (
	"fmt"
	"strings"
	"time"
)

// ApprovalStatus is the operator disposition of one day's attendance.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// ApprovalStatuses lists every valid status in display order.
var ApprovalStatuses = []ApprovalStatus{StatusPending, StatusApproved, StatusRejected}

// ParseApprovalStatus accepts a status name in any case.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	st := ApprovalStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid approval status %q (want pending, approved or rejected)", s)
	}
	return st, nil
}

// Valid reports whether s is one of the three known statuses.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Normalize maps empty or unknown server values to pending.
func (s ApprovalStatus) Normalize() ApprovalStatus {
	st := ApprovalStatus(strings.ToLower(string(s)))
	if !st.Valid() {
		return StatusPending
	}
	return st
}

// PunchType is the direction of a punch.
type PunchType string

const (
	PunchIn  PunchType = "in"
	PunchOut PunchType = "out"
)

// PunchEvent is one physical clock-in/out scan. Read-only here.
type PunchEvent struct {
	ID       string    `json:"_id,omitempty" yaml:"id,omitempty"`
	Time     time.Time `json:"time" yaml:"time"`
	Type     PunchType `json:"type" yaml:"type"`
	DeviceID *string   `json:"deviceId" yaml:"deviceId"`
}

// EmployeeRef is the denormalized employee snapshot stored on a record.
type EmployeeRef struct {
	Name         string `json:"name" yaml:"name"`
	MachineEmpID *int   `json:"machineEmpId" yaml:"machineEmpId"`
}

// AttendanceRecord aggregates one employee's punches for one calendar day.
type AttendanceRecord struct {
	ID             string         `json:"_id" yaml:"id"`
	Date           Day            `json:"date" yaml:"date"`
	Employee       EmployeeRef    `json:"employee" yaml:"employee"`
	FirstIn        *time.Time     `json:"firstIn" yaml:"firstIn"`
	LastOut        *time.Time     `json:"lastOut" yaml:"lastOut"`
	TotalMinutes   int            `json:"totalMinutes" yaml:"totalMinutes"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus" yaml:"approvalStatus"`
	Logs           []PunchEvent   `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// Status returns the record's approval status with server gaps filled in.
func (r AttendanceRecord) Status() ApprovalStatus {
	return r.ApprovalStatus.Normalize()
}

// AttendancePage is one server page of attendance records.
type AttendancePage struct {
	Data  []AttendanceRecord `json:"data"`
	Total int                `json:"total"`
}

// LogsResponse is the body of GET /attendance/:id/logs.
type LogsResponse struct {
	Logs []PunchEvent `json:"logs"`
}

// Employee is the attendance-side view of an employee.
type Employee struct {
	ID           string     `json:"_id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	EmployeeID   string     `json:"EmployeId" yaml:"employeeId"`
	MachineEmpID *int       `json:"machineEmpId" yaml:"machineEmpId"`
	Branch       *BranchRef `json:"branchAdmin,omitempty" yaml:"branch,omitempty"`
	IsActive     bool       `json:"isActive" yaml:"isActive"`
}
