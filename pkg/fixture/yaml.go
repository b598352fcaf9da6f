package fixture

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arborlang/borrowck/pkg/ir"
)

// ScopeTree is the declarative region-parent shape a YAML fixture
// describes; RegionParent walks it exactly like typectx.Context.RegionParent
// but is built from a flat id: parent-id map instead of Go code, the way
// a compiler's golden fixtures describe scope nesting without encoding a
// full expression tree.
type ScopeTree struct {
	Root    ir.ScopeID           `yaml:"root"`
	Parents map[ir.ScopeID]ir.ScopeID `yaml:"parents"`
}

// RegionParent implements loan.RegionParent / typectx.Context's region
// query over the flat parent map.
func (t ScopeTree) RegionParent(s ir.ScopeID) (ir.ScopeID, bool) {
	if s == t.Root {
		return 0, false
	}
	p, ok := t.Parents[s]
	return p, ok
}

// ConfigFixture mirrors pass.Config's own fields in YAML so a test
// suite can drive msg_level/treat_const_as_imm scenarios from data
// files instead of Go literals.
type ConfigFixture struct {
	MsgLevel        int  `yaml:"msg_level"`
	TreatConstAsImm bool `yaml:"treat_const_as_imm"`
}

// LoadConfigFixture reads a YAML document of the ConfigFixture shape
// from path.
func LoadConfigFixture(path string) (ConfigFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigFixture{}, err
	}
	var cfg ConfigFixture
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ConfigFixture{}, err
	}
	return cfg, nil
}

// LoadScopeTree reads a YAML document of the ScopeTree shape from path.
func LoadScopeTree(path string) (ScopeTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScopeTree{}, err
	}
	var tree ScopeTree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return ScopeTree{}, err
	}
	return tree, nil
}
