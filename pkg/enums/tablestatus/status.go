package tablestatus

import "strings"

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Free     Status
	Reserved Status
	Occupied Status
	Disabled Status
}

var Statuses = Enum{
	Free:     Status{Name: "free"},
	Reserved: Status{Name: "reserved"},
	Occupied: Status{Name: "occupied"},
	Disabled: Status{Name: "disabled"},
}

var All = []Status{
	Statuses.Free,
	Statuses.Reserved,
	Statuses.Occupied,
	Statuses.Disabled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// IsHeld reports whether a status means some order owns the table.
func IsHeld(name string) bool {
	return name == Statuses.Reserved.Name || name == Statuses.Occupied.Name
}

func Names(statuses ...Status) []string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.Name)
	}
	return names
}
