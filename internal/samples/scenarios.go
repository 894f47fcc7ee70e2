package samples

import "strings"

// Scenario types
const (
	TypeBriefing      = "Single speaker"
	TypeBidirectional = "Bidirectional"
)

// Line is one speaker's part of a scripted conversation
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Scenario is a scripted manufacturing conversation used for demo audio
type Scenario struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Lines    []Line `json:"lines"`
}

// Script returns the text sent to speech synthesis. Bidirectional scripts
// keep their "Speaker: " prefixes so the labels are spoken.
func (s Scenario) Script() string {
	parts := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		if l.Speaker == "" {
			parts = append(parts, l.Text)
			continue
		}
		parts = append(parts, l.Speaker+": "+l.Text)
	}
	return strings.Join(parts, " ")
}

// Scenarios returns every built-in scenario
func Scenarios() []Scenario {
	return []Scenario{
		{
			ID: "safety-briefing", Name: "Safety Briefing", Filename: "safety_briefing.mp3", Type: TypeBriefing,
			Lines: []Line{{Text: "Good morning everyone. Before we start today's shift, let's review the safety procedures. " +
				"John, please ensure all team members are wearing their PPE correctly. " +
				"Mary, what's the status on the lockout tagout training? " +
				"We need to make sure everyone understands the emergency evacuation procedures. " +
				"Remember, safety is our top priority. Any questions about the hazard assessment?"}},
		},
		{
			ID: "quality-control", Name: "Quality Control", Filename: "quality_control.mp3", Type: TypeBriefing,
			Lines: []Line{{Text: "Let's discuss the quality issues from yesterday's production run. " +
				"Sarah, we found defects in batch 42. Can you inspect the tolerance levels? " +
				"The specifications weren't met on several components. " +
				"Mike, what's your analysis of the root cause? " +
				"We need to address these quality problems immediately to meet our standards. " +
				"The inspection results show we need better calibration of our testing equipment."}},
		},
		{
			ID: "production-planning", Name: "Production Planning", Filename: "production_planning.mp3", Type: TypeBriefing,
			Lines: []Line{{Text: "Good morning team. Let's discuss next week's production schedule. " +
				"Tom, what's our current manufacturing capacity? " +
				"We have a major deadline approaching and need to optimize our processes. " +
				"Lisa, can you review the resource allocation for the assembly line? " +
				"There's a bottleneck in the packaging department we need to address. " +
				"We need to increase efficiency and reduce downtime to meet our targets."}},
		},
		{
			ID: "safety-meeting-discussion", Name: "Safety Meeting Discussion", Filename: "safety_meeting_discussion.mp3", Type: TypeBidirectional,
			Lines: []Line{
				{"Safety Manager", "Good morning everyone. Let's start with our weekly safety review. John, can you update us on the PPE compliance status?"},
				{"John", "Thanks Sarah. I'm pleased to report that PPE compliance is at 95% this week. However, we had two incidents in the welding department where safety glasses weren't worn properly."},
				{"Safety Manager", "That's concerning. Mary, as the welding supervisor, what's your assessment of the situation?"},
				{"Mary", "I've noticed that some of our newer employees are still adjusting to the safety protocols. I think we need additional training sessions, especially for the lockout tagout procedures."},
				{"Safety Manager", "Agreed. Let's schedule mandatory refresher training for all welding department staff. We cannot compromise on safety standards."},
			},
		},
		{
			ID: "quality-control-investigation", Name: "Quality Control Investigation", Filename: "quality_control_investigation.mp3", Type: TypeBidirectional,
			Lines: []Line{
				{"QC Manager", "We need to discuss the quality issues found in yesterday's production batch. Mike, what did your inspection reveal?"},
				{"Mike", "We found defects in 15% of the units from batch 237. The main issue is with the tolerance levels on the mounting brackets. They're consistently 0.2mm outside specifications."},
				{"QC Manager", "That's unacceptable. Lisa, from the engineering perspective, what could be causing this deviation?"},
				{"Lisa", "I suspect it's a calibration issue with machine number 3. The tool wear indicators show it's due for maintenance. We should halt production on that machine immediately."},
				{"QC Manager", "Agreed. Mike, please coordinate with maintenance to get machine 3 recalibrated. We need to quarantine all parts from the affected batches until we can verify quality."},
			},
		},
		{
			ID: "production-planning-crisis", Name: "Production Planning Crisis", Filename: "production_planning_crisis.mp3", Type: TypeBidirectional,
			Lines: []Line{
				{"Production Manager", "We have a critical situation. Our main customer just moved up their delivery deadline by two weeks. Tom, what's our current capacity?"},
				{"Tom", "We're already running at 85% capacity. To meet the new deadline, we'd need to increase to 110% capacity, which means overtime and possibly weekend shifts."},
				{"Production Manager", "Jennifer, what's the impact on our other orders if we prioritize this customer?"},
				{"Jennifer", "We'd have to delay three smaller orders by at least a week. The revenue impact would be significant, but this customer represents 40% of our annual business."},
				{"Production Manager", "We need to make this work. Tom, authorize overtime for the next two weeks. Jennifer, contact the affected customers immediately to negotiate new delivery dates."},
			},
		},
	}
}

// Find returns the scenario with the given id
func Find(id string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
