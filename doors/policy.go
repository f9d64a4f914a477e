/*
policy.go - Capacity policy per door category

PURPOSE:
  Encodes how many door sets a unit may hold per category and which
  secondary category a unit type is offered.

RULES:
  Main     -> 1 set per unit
  Bedroom  -> 3 sets per unit
  Office   -> 3 sets per unit

  A unit tagged "Office" gets Main + Office doors. Every other unit type
  gets Main + Bedroom doors. A unit is never offered both Bedroom and
  Office.

  A set is complete when it holds every component in Components.
*/
package doors

import "strings"

const OfficeUnitType = "Office"

// Capacity returns the maximum number of sets a unit may have for the
// category. Unknown categories have no capacity.
func Capacity(category DoorType) int {
	switch category {
	case DoorMain:
		return 1
	case DoorBedroom, DoorOffice:
		return 3
	}
	return 0
}

// IsOfficeUnit reports whether a unit-type tag denotes an office unit.
func IsOfficeUnit(unitType string) bool {
	return strings.EqualFold(strings.TrimSpace(unitType), OfficeUnitType)
}

// Categories returns the door categories offered to a unit type.
func Categories(unitType string) []DoorType {
	if IsOfficeUnit(unitType) {
		return []DoorType{DoorMain, DoorOffice}
	}
	return []DoorType{DoorMain, DoorBedroom}
}

// Applicable reports whether doors of the category may be installed in a
// unit of the given type.
func Applicable(unitType string, category DoorType) bool {
	for _, c := range Categories(unitType) {
		if c == category {
			return true
		}
	}
	return false
}

// IsComplete reports whether a component membership forms a complete set.
func IsComplete(members ComponentSet) bool {
	for _, c := range Components {
		if !members.Has(c) {
			return false
		}
	}
	return true
}

// =============================================================================
// COMPONENT SET - Fixed-capacity membership of one door set
// =============================================================================

// ComponentSet is a bitset over Components.
type ComponentSet uint8

func componentBit(c Component) ComponentSet {
	switch c {
	case Frames:
		return 1 << 0
	case Shutters:
		return 1 << 1
	case Hardwares:
		return 1 << 2
	}
	return 0
}

func (s ComponentSet) Has(c Component) bool { return s&componentBit(c) != 0 }
func (s ComponentSet) With(c Component) ComponentSet { return s | componentBit(c) }
func (s ComponentSet) Empty() bool { return s == 0 }

// Members lists the components present, in Components order.
func (s ComponentSet) Members() []Component {
	var out []Component
	for _, c := range Components {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Missing lists the components still needed to complete the set.
func (s ComponentSet) Missing() []Component {
	var out []Component
	for _, c := range Components {
		if !s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
