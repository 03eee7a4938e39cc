package titles

import (
	"math"
	"strings"
	"testing"

	"propertyhub/pkg/models"
)

func bangNa() models.Ancestry {
	return models.Ancestry{
		models.LevelSubdistrict: {EN: "Bang Na", TH: "บางนา", ZH: "邦纳"},
		models.LevelDistrict:    {EN: "Bang Na", TH: "บางนา", ZH: "邦纳"},
		models.LevelProvince:    {EN: "Bangkok", TH: "กรุงเทพมหานคร", ZH: "曼谷"},
	}
}

func TestComposeAllFullListing(t *testing.T) {
	got := ComposeAll(Resolved{
		Type:       models.NameRecord{EN: "Warehouse", TH: "คลังสินค้า", ZH: "仓库"},
		Status:     models.NameRecord{EN: "For Rent", TH: "ให้เช่า", ZH: "出租"},
		Location:   bangNa(),
		Size:       500,
		PropertyID: "AT42R",
	})

	want := models.Titles{
		EN: "Warehouse 500 sqm for For Rent at Bang Na, Bang Na, Bangkok (Property ID: AT42R)",
		TH: "คลังสินค้า 500 ตร.ม. ให้เช่า ที่ บางนา, บางนา, กรุงเทพมหานคร (รหัส: AT42R)",
		ZH: "仓库 500 平方米 出租 邦纳, 邦纳, 曼谷 (ID: AT42R)",
	}
	if got != want {
		t.Fatalf("ComposeAll:\n got %+v\nwant %+v", got, want)
	}
}

func TestComposeFactoryOnly(t *testing.T) {
	typ := ApplyFactoryRule(models.NameRecord{EN: "Factory", TH: "โรงงาน", ZH: "工厂"}, "")
	got := ComposeAll(Resolved{Type: typ, PropertyID: "AT7S"})

	if got.EN != "Factory or Warehouse (Property ID: AT7S)" {
		t.Errorf("EN = %q", got.EN)
	}
	if got.TH != "โรงงาน หรือ คลังสินค้า (รหัส: AT7S)" {
		t.Errorf("TH = %q", got.TH)
	}
	if got.ZH != "工厂或仓库 (ID: AT7S)" {
		t.Errorf("ZH = %q", got.ZH)
	}
}

func TestComposeOmitsEmptyFragmentsAndConnectors(t *testing.T) {
	tests := []struct {
		name string
		lang Language
		in   Fragments
		want string
	}{
		{"no status", English, Fragments{Type: "Warehouse", Size: 100, Province: "Chon Buri"}, "Warehouse 100 sqm at Chon Buri"},
		{"no location", English, Fragments{Type: "Warehouse", Status: "For Sale"}, "Warehouse for For Sale"},
		{"only id", English, Fragments{PropertyID: "AT1R"}, "(Property ID: AT1R)"},
		{"nothing", English, Fragments{}, ""},
		{"blank strings", English, Fragments{Type: "  ", Status: " ", Province: " "}, ""},
		{"partial location", English, Fragments{Subdistrict: "Bang Phli Yai", Province: "Samut Prakan"}, "at Bang Phli Yai, Samut Prakan"},
		{"thai no location prefix when empty", Thai, Fragments{Type: "โกดัง", PropertyID: "AT9R"}, "โกดัง (รหัส: AT9R)"},
		{"chinese status has no prefix", Chinese, Fragments{Status: "出售"}, "出售"},
		{"unknown language uses english", Language("fr"), Fragments{Status: "For Rent"}, "for For Rent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.lang, tt.in)
			if got != tt.want {
				t.Fatalf("Compose = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "  ") {
				t.Fatalf("double space in %q", got)
			}
		})
	}
}

func TestComposeEmptyStatusHasNoForToken(t *testing.T) {
	got := Compose(English, Fragments{Type: "Warehouse", Size: 10, Province: "Rayong", PropertyID: "AT3R"})
	for _, tok := range strings.Fields(got) {
		if tok == "for" {
			t.Fatalf("unexpected connector in %q", got)
		}
	}
}

func TestComposeSize(t *testing.T) {
	tests := []struct {
		size float64
		want string
	}{
		{500, "500 sqm"},
		{1250.5, "1250.5 sqm"},
		{0, ""},
		{-20, ""},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		if got := Compose(English, Fragments{Size: tt.size}); got != tt.want {
			t.Errorf("size %v: got %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	r := Resolved{
		Type:       models.NameRecord{EN: "Warehouse", TH: "คลังสินค้า", ZH: "仓库"},
		Location:   bangNa(),
		Size:       42,
		PropertyID: "AT42R",
	}
	if a, b := ComposeAll(r), ComposeAll(r); a != b {
		t.Fatalf("non-deterministic output: %+v vs %+v", a, b)
	}
}
