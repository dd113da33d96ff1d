package coach

import (
	"fmt"
	"strings"
)

// GenericJobDescription is used when no target job title is given.
const GenericJobDescription = "A generic professional role; focus on transferable skills: communication, problem-solving, teamwork, and role-relevant competencies."

const jobDescriptionTemplate = "Canonical responsibilities and skills for the role '%s':\n" +
	"- Core responsibilities: deliver outcomes relevant to the role, collaborate cross-functionally, and manage stakeholder communication.\n" +
	"- Common skills: relevant technical skills for the title, domain knowledge, problem-solving, communication, and measurable achievements.\n" +
	"- Typical deliverables: project outcomes, metrics/KPIs, and domain-specific examples (e.g., product launches, model accuracy improvements, revenue impact).\n"

// SynthesizeJobDescription returns a short canonical description for a job
// title. Blank titles get GenericJobDescription.
func SynthesizeJobDescription(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return GenericJobDescription
	}
	return fmt.Sprintf(jobDescriptionTemplate, title)
}
