package common

// EnergyMix describes the energy an operator supplies.
type EnergyMix struct {
	IsGreenEnergy       bool                 `json:"is_green_energy" bson:"is_green_energy"`
	EnergySources       []*EnergySource      `json:"energy_sources,omitempty" bson:"energy_sources,omitempty"`
	EnvironmentalImpact *EnvironmentalImpact `json:"environ_impact,omitempty" bson:"environ_impact,omitempty"`
	SupplierName        string               `json:"supplier_name,omitempty" bson:"supplier_name,omitempty"`
	EnergyProductName   string               `json:"energy_product_name,omitempty" bson:"energy_product_name,omitempty"`
}

// EnergySource is the share of one category, in percent.
type EnergySource struct {
	Source     EnergySourceCategory `json:"source" bson:"source"`
	Percentage int                  `json:"percentage" bson:"percentage"`
}

type EnergySourceCategory string

const (
	SourceNuclear       EnergySourceCategory = "NUCLEAR"
	SourceGeneralFossil EnergySourceCategory = "GENERAL_FOSSIL"
	SourceCoal          EnergySourceCategory = "COAL"
	SourceGas           EnergySourceCategory = "GAS"
	SourceGeneralGreen  EnergySourceCategory = "GENERAL_GREEN"
	SourceSolar         EnergySourceCategory = "SOLAR"
	SourceWind          EnergySourceCategory = "WIND"
	SourceWater         EnergySourceCategory = "WATER"
)

// EnvironmentalImpact is an amount in g/kWh.
type EnvironmentalImpact struct {
	Category EnvironmentalImpactCategory `json:"category" bson:"category"`
	Amount   int                         `json:"amount" bson:"amount"`
}

type EnvironmentalImpactCategory string

const (
	ImpactNuclearWaste  EnvironmentalImpactCategory = "NUCLEAR_WASTE"
	ImpactCarbonDioxide EnvironmentalImpactCategory = "CARBON_DIOXIDE"
)
