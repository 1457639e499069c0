package entity

import (
	"encoding/json"
	"evroam/entity/common"
	"evroam/utility"
	"fmt"
	"strings"
)

// Property names of the static operator attributes.
const (
	PropertyName        = "name"
	PropertyDescription = "description"
	PropertyHomepage    = "homepage"
	PropertyHotline     = "hotline"
	PropertyEmail       = "email"
	PropertyLogo        = "logo"
	PropertyEnergyMix   = "energy_mix"
)

const maxPropertyName = 64

// IsAttribute reports whether name is one of the static attributes.
func IsAttribute(name string) bool {
	switch name {
	case PropertyName, PropertyDescription, PropertyHomepage, PropertyHotline,
		PropertyEmail, PropertyLogo, PropertyEnergyMix:
		return true
	}
	return false
}

// ValidatePropertyName accepts plain identifiers only. Names are used as
// document field names by the store, so path separators are refused.
func ValidatePropertyName(name string) error {
	if name == "" || len(name) > maxPropertyName || strings.ContainsAny(name, ".$\x00") {
		return fmt.Errorf("property %q: %w", name, utility.ErrInvalidProperty)
	}
	return nil
}

// Attributes are the static, descriptive fields of an operator.
type Attributes struct {
	Name        string               `json:"name,omitempty" bson:"name,omitempty"`
	Description []common.DisplayText `json:"description,omitempty" bson:"description,omitempty"`
	Homepage    string               `json:"homepage,omitempty" bson:"homepage,omitempty"`
	Hotline     string               `json:"hotline,omitempty" bson:"hotline,omitempty"`
	Email       string               `json:"email,omitempty" bson:"email,omitempty"`
	Logo        string               `json:"logo,omitempty" bson:"logo,omitempty"`
	EnergyMix   *common.EnergyMix    `json:"energy_mix,omitempty" bson:"energy_mix,omitempty"`
}

func (a Attributes) values() map[string]any {
	values := make(map[string]any)
	if a.Name != "" {
		values[PropertyName] = a.Name
	}
	if len(a.Description) > 0 {
		values[PropertyDescription] = a.Description
	}
	if a.Homepage != "" {
		values[PropertyHomepage] = a.Homepage
	}
	if a.Hotline != "" {
		values[PropertyHotline] = a.Hotline
	}
	if a.Email != "" {
		values[PropertyEmail] = a.Email
	}
	if a.Logo != "" {
		values[PropertyLogo] = a.Logo
	}
	if a.EnergyMix != nil {
		values[PropertyEnergyMix] = a.EnergyMix
	}
	return values
}

func attributesFrom(values map[string]any) Attributes {
	var a Attributes
	a.Name, _ = values[PropertyName].(string)
	a.Description, _ = values[PropertyDescription].([]common.DisplayText)
	a.Homepage, _ = values[PropertyHomepage].(string)
	a.Hotline, _ = values[PropertyHotline].(string)
	a.Email, _ = values[PropertyEmail].(string)
	a.Logo, _ = values[PropertyLogo].(string)
	a.EnergyMix, _ = values[PropertyEnergyMix].(*common.EnergyMix)
	return a
}

// DecodeProperty decodes a JSON value into the type the named attribute is
// stored with. Unknown names keep the generic JSON decoding.
func DecodeProperty(name string, raw json.RawMessage) (any, error) {
	var err error
	var value any
	switch name {
	case PropertyName, PropertyHomepage, PropertyHotline, PropertyEmail, PropertyLogo:
		var s string
		err = json.Unmarshal(raw, &s)
		value = s
	case PropertyDescription:
		var d []common.DisplayText
		err = json.Unmarshal(raw, &d)
		value = d
	case PropertyEnergyMix:
		var mix *common.EnergyMix
		err = json.Unmarshal(raw, &mix)
		value = mix
	default:
		err = json.Unmarshal(raw, &value)
	}
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return value, nil
}
