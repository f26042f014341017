package agent

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/parliament/types"
)

// Parliament is the full set of analysts built for one project: the
// synthesizing generalist, the ordered specialist pool, and the optional
// single-shot sourcer.
type Parliament struct {
	Generalist  Analyst
	Specialists []Analyst
	Sourcer     Analyst
}

// Size returns the number of deliberating members (generalist + specialists).
func (p *Parliament) Size() int {
	return 1 + len(p.Specialists)
}

// BuildParliament constructs all analysts for a project from its persona
// configuration. Specialists are ordered by their configuration key so the
// invocation order is stable across rounds. A project without a generalist
// persona is rejected; the sourcer is optional.
func BuildParliament(project *types.Project, completer Completer, logger *zap.Logger) (*Parliament, error) {
	if project == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "project is required")
	}
	if project.Generalist.Persona == "" {
		return nil, types.NewErrorf(types.ErrInvalidConfig, "project %s has no generalist persona", project.ID)
	}

	generalist, err := NewMember(types.RoleGeneralist, project.Generalist, completer, logger)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(project.Specialists))
	for k := range project.Specialists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	specialists := make([]Analyst, 0, len(keys))
	for _, k := range keys {
		member, err := NewMember(fmt.Sprintf("specialist_%s", k), project.Specialists[k], completer, logger)
		if err != nil {
			return nil, err
		}
		specialists = append(specialists, member)
	}

	parliament := &Parliament{
		Generalist:  generalist,
		Specialists: specialists,
	}

	if project.Sourcer.Persona != "" {
		sourcer, err := NewMember(types.RoleSourcer, project.Sourcer, completer, logger)
		if err != nil {
			return nil, err
		}
		parliament.Sourcer = sourcer
	}

	return parliament, nil
}
