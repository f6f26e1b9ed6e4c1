package sandbox

import (
	"fmt"
	"time"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// Demo login.
const (
	DemoEmail    = "admin@clinic.test"
	DemoPassword = "admin123"
	DemoRole     = "superadmin"
)

func day(s string) model.Day {
	d, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func at(d, clock string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", d+" "+clock, time.Local)
	if err != nil {
		panic(err)
	}
	return &t
}

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

func punch(d, clock string, typ model.PunchType, serial string) model.PunchEvent {
	ev := model.PunchEvent{Time: *at(d, clock), Type: typ}
	if serial != "" {
		ev.DeviceID = strp(serial)
	}
	return ev
}

// Seed fills s with demo data:
//
//   - B1 "Mumbai HQ": three employees with one record each on 2024-01-10,
//     2024-01-11 and 2024-01-12 (pending, approved, rejected) and three devices,
//     two of them gates.
//   - B2 "Pune East": one gate device.
//   - B3 "Delhi Clinic": 45 records on 2024-01-15 for paging.
//   - Two iDMS devices not yet registered.
func Seed(s *Store) {
	s.AddUser(User{Email: DemoEmail, Password: DemoPassword, Role: DemoRole})

	s.AddBranch(model.Branch{ID: "B1", Name: "Mumbai HQ", Email: "mumbai@clinic.test"})
	s.AddBranch(model.Branch{ID: "B2", Name: "Pune East", Email: "pune@clinic.test"})
	s.AddBranch(model.Branch{ID: "B3", Name: "Delhi Clinic", Email: "delhi@clinic.test"})

	s.AddEmployee(model.Employee{ID: "E1", Name: "Asha Rao", EmployeeID: "MUM-001", MachineEmpID: intp(101), IsActive: true}, "B1")
	s.AddEmployee(model.Employee{ID: "E2", Name: "Vikram Shah", EmployeeID: "MUM-002", MachineEmpID: intp(102), IsActive: true}, "B1")
	s.AddEmployee(model.Employee{ID: "E3", Name: "Neha Iyer", EmployeeID: "MUM-003", MachineEmpID: intp(103), IsActive: true}, "B1")
	s.AddEmployee(model.Employee{ID: "E4", Name: "Rohan Kulkarni", EmployeeID: "PUN-001", MachineEmpID: intp(201)}, "B2")

	mumbai := []struct {
		id, emp, date string
		status        model.ApprovalStatus
		in, out       string
	}{
		{"R1", "E1", "2024-01-10", model.StatusPending, "09:02", "18:10"},
		{"R2", "E2", "2024-01-11", model.StatusApproved, "08:55", "17:30"},
		{"R3", "E3", "2024-01-12", model.StatusRejected, "10:15", "14:00"},
	}
	for _, m := range mumbai {
		first, last := at(m.date, m.in), at(m.date, m.out)
		s.AddRecord(model.AttendanceRecord{
			ID:             m.id,
			Date:           day(m.date),
			FirstIn:        first,
			LastOut:        last,
			TotalMinutes:   int(last.Sub(*first).Minutes()),
			ApprovalStatus: m.status,
			Logs: []model.PunchEvent{
				punch(m.date, m.in, model.PunchIn, "MUM-GATE-01"),
				punch(m.date, m.out, model.PunchOut, "MUM-GATE-01"),
			},
		}, "B1", m.emp)
	}

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s.AddDevice(model.Device{ID: "D1", SerialNumber: "MUM-GATE-01", Name: "Main Gate", Location: "Ground floor", LastKnownStatus: "Online"}, "B1", base, true)
	s.AddDevice(model.Device{ID: "D2", SerialNumber: "MUM-REC-01", Name: "Reception", Location: "Lobby", LastKnownStatus: "Offline"}, "B1", base.Add(time.Hour), false)
	s.AddDevice(model.Device{ID: "D3", SerialNumber: "MUM-PK-01", Name: "Staff entry", Location: "Parking gate", LastKnownStatus: "Online"}, "B1", base.Add(2*time.Hour), true)
	s.AddDevice(model.Device{ID: "D4", SerialNumber: "PUN-GATE-01", Name: "Gate North", Location: "Entrance"}, "B2", base.Add(3*time.Hour), true)

	for i := 1; i <= 45; i++ {
		empID := fmt.Sprintf("DEL-%02d", i)
		s.AddEmployee(model.Employee{ID: empID, Name: fmt.Sprintf("Delhi Staff %02d", i), EmployeeID: empID, MachineEmpID: intp(300 + i), IsActive: true}, "B3")
		s.AddRecord(model.AttendanceRecord{
			ID:           fmt.Sprintf("DR%02d", i),
			Date:         day("2024-01-15"),
			FirstIn:      at("2024-01-15", "09:00"),
			LastOut:      at("2024-01-15", "17:00"),
			TotalMinutes: 480,
		}, "B3", empID)
	}

	s.AddIDMSDevice(IDMSDevice{SerialNumber: "TW6000PW-0001", DeviceName: "iDMS Terminal 1", Location: "Pharmacy", Online: true})
	s.AddIDMSDevice(IDMSDevice{SerialNumber: "TW6000PW-0002", DeviceName: "iDMS Terminal 2", Online: false})
}
