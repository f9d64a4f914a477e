package client

// Backend JSON shapes. Field names follow the backend's spelling.

type loginRequest struct {
	EmpNo    string `json:"Emp_No"`
	Password string `json:"Password"`
}

type loginResponse struct {
	Token string `json:"token"`
	EmpNo string `json:"Emp_No"`
}

// taskWire is one task: the floors of a tower assigned to an employee and
// what has been installed there.
type taskWire struct {
	TaskID         string          `json:"Task_ID"`
	ProjectID      string          `json:"Project_ID"`
	TowerID        string          `json:"Tower_ID"`
	FloorsInfo     []floorWire     `json:"Floors_Info"`
	SuppliedDoors  []supplyWire    `json:"Supplied_Doors"`
	InstalledDoors []installedWire `json:"Installed_Doors"`
}

type floorWire struct {
	FloorID string     `json:"Floor_ID"`
	Units   []unitWire `json:"Units"`
}

type unitWire struct {
	UnitID   string `json:"Unit_ID"`
	UnitType string `json:"Unit_Type"`
}

// installedWire is both the read shape of Installed_Doors and the body
// entry of POST tasks/details. Units is the quantity.
type installedWire struct {
	RecordID   string `json:"Record_ID,omitempty"`
	ProjectID  string `json:"Project_ID"`
	TowerID    string `json:"Tower_ID"`
	FloorID    string `json:"Floor_ID"`
	UnitID     string `json:"Unit_ID"`
	DoorType   string `json:"Door_Type"`
	DoorTypeMM string `json:"Door_Type_MM"`
	Type       string `json:"Type"`
	SetNo      int    `json:"Set_No"`
	Units      int    `json:"Units"`
	CreatedAt  string `json:"Created_At,omitempty"`
}

// supplyWire is a per-cell row of GET supplied-doors. Required is the
// tower requirement, TotalCount the supplied total so far.
type supplyWire struct {
	ProjectID  string `json:"Project_ID"`
	TowerID    string `json:"Tower_ID"`
	DoorType   string `json:"Door_Type"`
	DoorTypeMM string `json:"Door_Type_MM"`
	Type       string `json:"Type"`
	Required   int    `json:"Required_Count"`
	TotalCount int    `json:"total_count"`
}

// supplyEntryWire is one body entry of POST supplied-doors: one door type
// of one tower with its per-thickness breakdown.
type supplyEntryWire struct {
	ProjectID    string          `json:"Project_ID"`
	TowerID      string          `json:"Tower_ID"`
	DoorType     string          `json:"Door_Type"`
	SuppliedDate string          `json:"Supplied_Date"`
	Thicknesses  []thicknessWire `json:"Thicknesses"`
	TotalCount   int             `json:"total_count"`
}

type thicknessWire struct {
	DoorTypeMM string `json:"Door_Type_MM"`
	Frames     int    `json:"Frames"`
	Shutters   int    `json:"Shutters"`
	Hardwares  int    `json:"Hardwares"`
}
