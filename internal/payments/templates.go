package payments

// ScheduleTemplate is a named payment-schedule preset. Applying one replaces
// every existing term on the proposal; it is never a merge.
type ScheduleTemplate struct {
	Key   string         `json:"key"`
	Name  string         `json:"name"`
	Lines []TemplateLine `json:"lines"`
}

// TemplateLine fully specifies one term of a preset.
type TemplateLine struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Due        DueSpec `json:"due"`
}

var builtinTemplates = []ScheduleTemplate{
	{
		Key:  "50-50",
		Name: "50/50 Split",
		Lines: []TemplateLine{
			{Name: "First installment", Percentage: 50, Due: DueOnCondition("Upon signing")},
			{Name: "Final installment", Percentage: 50, Due: DueInDays(30)},
		},
	},
	{
		Key:  "30-70",
		Name: "30/70 Split",
		Lines: []TemplateLine{
			{Name: "Deposit", Percentage: 30, Due: DueOnCondition("Upon signing")},
			{Name: "Final installment", Percentage: 70, Due: DueInDays(30)},
		},
	},
	{
		Key:  "progressive",
		Name: "Progressive",
		Lines: []TemplateLine{
			{Name: "First installment", Percentage: 20, Due: DueOnCondition("Upon signing")},
			{Name: "Second installment", Percentage: 30, Due: DueInDays(30)},
			{Name: "Final installment", Percentage: 50, Due: DueInDays(60)},
		},
	},
	{
		Key:  "milestone",
		Name: "Milestone-Based",
		Lines: []TemplateLine{
			{Name: "Project kickoff", Percentage: 25, Due: DueOnCondition("Upon signing")},
			{Name: "Design approval", Percentage: 25, Due: DueOnCondition("On design approval")},
			{Name: "Delivery", Percentage: 25, Due: DueOnCondition("On delivery")},
			{Name: "Final acceptance", Percentage: 25, Due: DueOnCondition("On final acceptance")},
		},
	},
	{
		Key:  "monthly",
		Name: "Monthly Installments",
		Lines: []TemplateLine{
			{Name: "First installment", Percentage: 25, Due: DueInDays(30)},
			{Name: "Second installment", Percentage: 25, Due: DueInDays(60)},
			{Name: "Third installment", Percentage: 25, Due: DueInDays(90)},
			{Name: "Fourth installment", Percentage: 25, Due: DueInDays(120)},
		},
	},
}

// BuiltinTemplates lists the available presets.
func BuiltinTemplates() []ScheduleTemplate {
	out := make([]ScheduleTemplate, len(builtinTemplates))
	copy(out, builtinTemplates)
	return out
}

// TemplateByKey looks up a preset by key.
func TemplateByKey(key string) (ScheduleTemplate, bool) {
	for _, tpl := range builtinTemplates {
		if tpl.Key == key {
			return tpl, true
		}
	}
	return ScheduleTemplate{}, false
}
