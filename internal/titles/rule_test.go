package titles

import (
	"testing"

	"propertyhub/pkg/models"
)

func TestApplyFactoryRule(t *testing.T) {
	warehouse := models.NameRecord{EN: "Warehouse", TH: "คลังสินค้า", ZH: "仓库"}

	tests := []struct {
		name     string
		resolved models.NameRecord
		typeText string
		want     models.NameRecord
	}{
		{"resolved factory", models.NameRecord{EN: "Factory", TH: "โรงงาน", ZH: "工厂"}, "", FactoryOrWarehouse},
		{"resolved factory any case", models.NameRecord{EN: "  fACTORY "}, "", FactoryOrWarehouse},
		{"warehouse alone", warehouse, "Warehouse", warehouse},
		{"combined text overrides warehouse", warehouse, "Factory|Warehouse", FactoryOrWarehouse},
		{"combined text lower case", models.NameRecord{}, "warehouse, factory", FactoryOrWarehouse},
		{"factory text without warehouse", models.NameRecord{EN: "Office"}, "Factory", models.NameRecord{EN: "Office"}},
		{"empty", models.NameRecord{}, "", models.NameRecord{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFactoryRule(tt.resolved, tt.typeText)
			if got != tt.want {
				t.Fatalf("ApplyFactoryRule(%+v, %q) = %+v, want %+v", tt.resolved, tt.typeText, got, tt.want)
			}
		})
	}
}
