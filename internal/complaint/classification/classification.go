// Package classification derives decision-authority and escalation
// eligibility from a case's regulatory article and organizational placement.
//
// This is pure domain logic - no I/O, no side effects. Output is advisory:
// the action catalog consults it to decide which actions to expose, and the
// engine consults it inside transition guards. It never mutates a case.
package classification

import (
	id "disciplina/pkg/domain"
	"disciplina/internal/complaint/models"
)

// Classification is the advisory result of classifying one case snapshot.
type Classification struct {
	// DecisionAuthority is the body empowered to issue the punishment
	// decision for this case.
	DecisionAuthority models.DecisionAuthority
	// CanForwardToHQ marks Article 31 cases eligible for headquarters
	// adjudication.
	CanForwardToHQ bool
	// IsLevelEscalated marks Article 30 cases eligible for the optional
	// severity-escalation forward to a center-level committee.
	IsLevelEscalated bool
}

// Classify maps a case's article, committee assignment, and center reference
// onto its advisory flags.
//
// Rule chain:
//   - Article 30 cases answer to the discipline committee. While no committee
//     is assigned, the severity-escalation forward remains available; once a
//     committee holds the case that option disappears.
//   - Article 31 cases answer to the direct superior. A case whose assigned
//     committee is itself a headquarters committee (no center reference)
//     becomes eligible for forwarding to HQ adjudication; center-level
//     committees are not.
func Classify(article models.Article, committeeAssigned bool, centerID *id.CenterID) Classification {
	switch article {
	case models.Article30:
		return Classification{
			DecisionAuthority: models.AuthorityDisciplineCommittee,
			IsLevelEscalated:  !committeeAssigned,
		}
	case models.Article31:
		atHeadquarters := centerID == nil || centerID.IsNil()
		return Classification{
			DecisionAuthority: models.AuthorityDirectSuperior,
			CanForwardToHQ:    committeeAssigned && atHeadquarters,
		}
	}
	// Unknown articles classify to the most restrictive shape: superior
	// authority, no escalation paths.
	return Classification{DecisionAuthority: models.AuthorityDirectSuperior}
}

// ClassifyCase is a convenience wrapper over Classify for a full snapshot.
func ClassifyCase(c *models.Case) Classification {
	return Classify(c.Article, c.CommitteeAssigned(), c.CenterID)
}
