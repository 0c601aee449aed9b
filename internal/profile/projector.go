package profile

import (
	"fmt"
	"strings"
)

// Project flattens a profile into a single text blob for embedding and for
// verbatim inclusion in prompts. The output is a pure function of the
// profile's field values: fields are emitted in a fixed order and absent
// optional fields are skipped entirely, never replaced with placeholders.
func Project(p Profile) string {
	var parts []string

	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	addList := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, label+": "+strings.Join(values, ", "))
		}
	}

	add("Name", p.BasicInfo.Name)
	add("Location", p.BasicInfo.Location)

	add("Target position", p.CareerObjective.TargetPosition)
	add("Target industry", p.CareerObjective.TargetIndustry)
	add("Career goals", p.CareerObjective.CareerGoals)
	addList("Target role types", p.CareerObjective.TargetRoleTypes)

	for _, exp := range p.WorkExperience {
		add("Work experience", strings.TrimSpace(exp.Company+" "+exp.Position))
		addList("Responsibilities", exp.Responsibilities)
		addList("Technologies", exp.Technologies)
		addList("Achievements", exp.Achievements)
	}

	for _, proj := range p.Projects {
		add("Project", proj.Name)
		add("Project description", proj.Description)
		add("Role", proj.Role)
		addList("Technologies", proj.Technologies)
		add("Challenges", proj.Challenges)
		add("Solutions", proj.Solutions)
		add("Results", proj.Results)
	}

	var skills []string
	for _, cat := range p.Skills.Categories() {
		for _, s := range cat.Skills {
			skills = append(skills, fmt.Sprintf("%s level %d, %g years", s.Name, s.Level, s.Years))
		}
	}
	addList("Skills", skills)

	for _, edu := range p.Education {
		add("Education", strings.TrimSpace(edu.Degree+" "+edu.School))
		addList("Relevant courses", edu.RelevantCourses)
	}

	addList("Certifications", p.Certifications)

	add("Work style", p.Personality.WorkStyle)
	add("Values", p.Personality.Values)
	addList("Interests", p.Personality.Interests)

	var langs []string
	for _, l := range p.Languages {
		langs = append(langs, strings.TrimSpace(l.Language+" "+l.Level))
	}
	addList("Languages", langs)

	return strings.Join(parts, "\n")
}
