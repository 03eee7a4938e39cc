package titles

import (
	"strings"

	"propertyhub/pkg/models"
)

// FactoryOrWarehouse replaces the type name of every listing the factory rule matches.
var FactoryOrWarehouse = models.NameRecord{
	EN: "Factory or Warehouse",
	TH: "โรงงาน หรือ คลังสินค้า",
	ZH: "工厂或仓库",
}

// FactoryRuleApplies reports whether a listing is shown as "Factory or Warehouse".
// Either the resolved English type is "factory", or the legacy free-text type carries
// both tags (for example "Factory|Warehouse"). The two clauses are independent, so a
// listing resolved to "Warehouse" whose text still says "Factory|Warehouse" matches too.
func FactoryRuleApplies(resolvedEN, typeText string) bool {
	if strings.EqualFold(strings.TrimSpace(resolvedEN), "factory") {
		return true
	}
	lower := strings.ToLower(typeText)
	return strings.Contains(lower, "factory") && strings.Contains(lower, "warehouse")
}

func ApplyFactoryRule(resolved models.NameRecord, typeText string) models.NameRecord {
	if FactoryRuleApplies(resolved.EN, typeText) {
		return FactoryOrWarehouse
	}
	return resolved
}
