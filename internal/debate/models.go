package debate

import (
	"fmt"
	"strings"
)

// Instance names a backing model server.
type Instance string

const (
	InstanceFor     Instance = "ollama1"
	InstanceAgainst Instance = "ollama2"
)

// Instances lists the model servers in display order.
func Instances() []Instance {
	return []Instance{InstanceFor, InstanceAgainst}
}

func ParseInstance(name string) (Instance, bool) {
	switch Instance(strings.TrimSpace(name)) {
	case InstanceFor:
		return InstanceFor, true
	case InstanceAgainst:
		return InstanceAgainst, true
	default:
		return "", false
	}
}

func (i Instance) Side() string {
	if i == InstanceFor {
		return "For"
	}
	return "Against"
}

const OperationFinishedStatus = "Ollama operation finished."

// Catalog is the model state of one instance.
type Catalog struct {
	Available []string
	Selected  string
	Status    string
	pending   string
}

func (c *Catalog) has(model string) bool {
	for _, m := range c.Available {
		if m == model {
			return true
		}
	}
	return false
}

// ModelEntry is one row of the available-models list.
type ModelEntry struct {
	Name      string
	IsDefault bool
	Deletable bool
}

// ModelManager keeps per-instance catalogs, the pullable list and selections.
type ModelManager struct {
	catalogs     map[Instance]*Catalog
	pullable     []string
	defaultModel string
}

func NewModelManager() *ModelManager {
	m := &ModelManager{catalogs: map[Instance]*Catalog{}}
	for _, inst := range Instances() {
		m.catalogs[inst] = &Catalog{}
	}
	return m
}

func (m *ModelManager) catalog(inst Instance) *Catalog {
	c, ok := m.catalogs[inst]
	if !ok {
		c = &Catalog{}
		m.catalogs[inst] = c
	}
	return c
}

func (m *ModelManager) DefaultModel() string {
	return m.defaultModel
}

// ApplyInfo replaces the full catalog from a models_info event.
func (m *ModelManager) ApplyInfo(info ModelsInfo) {
	m.pullable = append([]string(nil), info.PullableModels...)
	m.defaultModel = info.DefaultModel
	m.catalog(InstanceFor).Available = append([]string(nil), info.Ollama1Models...)
	m.catalog(InstanceAgainst).Available = append([]string(nil), info.Ollama2Models...)
	selected := map[Instance]string{
		InstanceFor:     info.SelectedForModel,
		InstanceAgainst: info.SelectedAgainstModel,
	}
	for _, inst := range Instances() {
		c := m.catalog(inst)
		// An absent selection keeps whatever is pending from an earlier echo.
		if strings.TrimSpace(selected[inst]) != "" {
			m.request(inst, selected[inst])
		} else {
			m.reconcile(c)
		}
		if c.Selected == "" && c.pending == "" && m.defaultModel != "" && c.has(m.defaultModel) {
			c.Selected = m.defaultModel
		}
	}
}

// ApplyUpdate replaces the available list of one instance.
func (m *ModelManager) ApplyUpdate(inst Instance, models []string) {
	c := m.catalog(inst)
	c.Available = append([]string(nil), models...)
	m.reconcile(c)
}

// ApplySelection applies server-echoed selections. Unknown models stay pending
// until a catalog containing them arrives.
func (m *ModelManager) ApplySelection(forModel, againstModel *string) {
	if forModel != nil {
		m.request(InstanceFor, *forModel)
	}
	if againstModel != nil {
		m.request(InstanceAgainst, *againstModel)
	}
}

func (m *ModelManager) request(inst Instance, model string) {
	c := m.catalog(inst)
	model = strings.TrimSpace(model)
	if model == "" || c.has(model) {
		c.Selected = model
		c.pending = ""
		return
	}
	c.pending = model
	m.reconcile(c)
}

func (m *ModelManager) reconcile(c *Catalog) {
	if c.pending != "" && c.has(c.pending) {
		c.Selected = c.pending
		c.pending = ""
	}
	if c.Selected != "" && !c.has(c.Selected) {
		c.Selected = ""
	}
}

// Select sets the local selection of inst. model must be available or empty.
func (m *ModelManager) Select(inst Instance, model string) error {
	c := m.catalog(inst)
	if model != "" && !c.has(model) {
		return fmt.Errorf("%s on %s: %w", model, inst, ErrUnknownModel)
	}
	c.Selected = model
	c.pending = ""
	return nil
}

func (m *ModelManager) Selected(inst Instance) string {
	return m.catalog(inst).Selected
}

func (m *ModelManager) Pending(inst Instance) string {
	return m.catalog(inst).pending
}

func (m *ModelManager) Available(inst Instance) []string {
	return m.catalog(inst).Available
}

// Entries lists the available models of inst. The default model is never deletable.
func (m *ModelManager) Entries(inst Instance) []ModelEntry {
	c := m.catalog(inst)
	out := make([]ModelEntry, 0, len(c.Available))
	for _, name := range c.Available {
		isDefault := m.defaultModel != "" && name == m.defaultModel
		out = append(out, ModelEntry{Name: name, IsDefault: isDefault, Deletable: !isDefault})
	}
	return out
}

// PullOptions lists pullable models not yet present on inst.
func (m *ModelManager) PullOptions(inst Instance) []string {
	c := m.catalog(inst)
	out := make([]string, 0, len(m.pullable))
	for _, name := range m.pullable {
		if !c.has(name) {
			out = append(out, name)
		}
	}
	return out
}

// CheckOperation rejects model operations while anything else is running.
func (m *ModelManager) CheckOperation(status DebateStatus) error {
	if status.Active || status.LongOperationActive {
		return ErrBusy
	}
	return nil
}

func (m *ModelManager) BeginPull(inst Instance, model string) {
	m.catalog(inst).Status = fmt.Sprintf("Pulling %s...", model)
}

func (m *ModelManager) BeginDelete(inst Instance, model string) error {
	if m.defaultModel != "" && model == m.defaultModel {
		return ErrProtectedModel
	}
	m.catalog(inst).Status = fmt.Sprintf("Deleting %s...", model)
	return nil
}

func (m *ModelManager) SetStatus(inst Instance, text string) {
	m.catalog(inst).Status = text
}

func (m *ModelManager) Status(inst Instance) string {
	return m.catalog(inst).Status
}

// FinishOperations swaps any pulling/deleting status for the finished notice.
func (m *ModelManager) FinishOperations() bool {
	changed := false
	for _, inst := range Instances() {
		c := m.catalog(inst)
		if strings.HasPrefix(c.Status, "Pulling ") || strings.HasPrefix(c.Status, "Deleting ") {
			c.Status = OperationFinishedStatus
			changed = true
		}
	}
	return changed
}

// ClearFinished removes finished notices left by FinishOperations.
func (m *ModelManager) ClearFinished() {
	for _, inst := range Instances() {
		c := m.catalog(inst)
		if c.Status == OperationFinishedStatus {
			c.Status = ""
		}
	}
}
