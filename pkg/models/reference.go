package models

// NameRecord holds one display name in each supported language.
type NameRecord struct {
	EN string `json:"en"`
	TH string `json:"th"`
	ZH string `json:"zh"`
}

func (n NameRecord) IsZero() bool {
	return n.EN == "" && n.TH == "" && n.ZH == ""
}

// Uniform returns a record carrying the same text in every language.
func Uniform(s string) NameRecord {
	return NameRecord{EN: s, TH: s, ZH: s}
}

type Level string

const (
	LevelProvince    Level = "province"
	LevelDistrict    Level = "district"
	LevelSubdistrict Level = "subdistrict"
)

func (l Level) Valid() bool {
	switch l {
	case LevelProvince, LevelDistrict, LevelSubdistrict:
		return true
	}
	return false
}

// Ancestry maps each level on a location's path to the root to its names.
type Ancestry map[Level]NameRecord

type Category struct {
	ID   int64      `json:"id"`
	Name NameRecord `json:"name"`
}

type Location struct {
	ID       int64      `json:"id"`
	Level    Level      `json:"level"`
	Name     NameRecord `json:"name"`
	ParentID *int64     `json:"parent_id,omitempty"`
}
