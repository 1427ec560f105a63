// Package classifier categorizes user utterances into a closed set of
// intents used to bias document retrieval. Classification is keyword
// based and fully deterministic: the same question always maps to the
// same intent, with no external calls involved.
package classifier

import "strings"

// Intent is the category assigned to a user question.
type Intent string

const (
	IntentProperty       Intent = "property"
	IntentEducation      Intent = "education"
	IntentTransit        Intent = "transit"
	IntentSafety         Intent = "safety"
	IntentAdministrative Intent = "administrative"
	IntentInfrastructure Intent = "infrastructure"
	IntentGeneral        Intent = "general"
)

// All returns every intent, default last.
func All() []Intent {
	return []Intent{
		IntentProperty,
		IntentEducation,
		IntentTransit,
		IntentSafety,
		IntentAdministrative,
		IntentInfrastructure,
		IntentGeneral,
	}
}

// Category returns the document category (大カテゴリ) used to filter
// retrieval for this intent. The general intent applies no filter.
func (i Intent) Category() string {
	switch i {
	case IntentProperty:
		return "物件概要"
	case IntentEducation:
		return "教育・子育て"
	case IntentTransit:
		return "交通・アクセス"
	case IntentSafety:
		return "安全・防災"
	case IntentAdministrative:
		return "行政施策・政策"
	case IntentInfrastructure:
		return "生活利便性"
	default:
		return ""
	}
}

// rules are evaluated in order; the first intent with a matching keyword
// wins. Keeping the order fixed keeps classification reproducible when a
// question mentions more than one topic.
var rules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentProperty, []string{
		"物件", "間取り", "価格", "家賃", "設備", "築年数", "分譲", "専有面積", "管理費",
	}},
	{IntentEducation, []string{
		"小学校", "中学校", "学校", "保育園", "幼稚園", "学童", "教育", "塾", "学区", "子育て", "公園",
	}},
	{IntentTransit, []string{
		"駅", "電車", "バス", "交通", "アクセス", "通勤", "通学", "路線", "渋滞", "駐輪場",
	}},
	{IntentSafety, []string{
		"治安", "防犯", "防災", "災害", "避難", "地震", "ハザード", "犯罪", "洪水", "液状化",
	}},
	{IntentAdministrative, []string{
		"市役所", "行政", "市政", "補助金", "助成", "ゴミ", "住民票", "再開発", "都市計画",
	}},
	{IntentInfrastructure, []string{
		"スーパー", "コンビニ", "病院", "買い物", "ドラッグストア", "銀行", "郵便局", "飲食店", "施設", "クリニック",
	}},
}

// Classify maps a raw question to an Intent. It is total: anything that
// matches no rule falls back to IntentGeneral.
func Classify(question string) Intent {
	q := strings.ToLower(question)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}
