package debate

// Indicators tracks which agents are currently shown as typing.
type Indicators struct {
	visible map[Role]bool
}

var indicatorRoles = []Role{RoleFor, RoleAgainst, RoleEvaluator}

func NewIndicators() *Indicators {
	return &Indicators{visible: map[Role]bool{}}
}

func tracksIndicator(role Role) bool {
	for _, r := range indicatorRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Set toggles the indicator of role. Roles without an indicator are ignored.
func (i *Indicators) Set(role Role, typing bool) bool {
	if !tracksIndicator(role) {
		return false
	}
	changed := i.visible[role] != typing
	i.visible[role] = typing
	return changed
}

func (i *Indicators) Clear(role Role) {
	i.Set(role, false)
}

func (i *Indicators) HideAll() {
	for _, role := range indicatorRoles {
		i.visible[role] = false
	}
}

func (i *Indicators) Visible(role Role) bool {
	return i.visible[role]
}

// Typing returns the visible roles in display order.
func (i *Indicators) Typing() []Role {
	out := make([]Role, 0, len(indicatorRoles))
	for _, role := range indicatorRoles {
		if i.visible[role] {
			out = append(out, role)
		}
	}
	return out
}
