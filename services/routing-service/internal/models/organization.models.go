package models

import "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"

// Organization is a shipper tenant of the brokerage.
type Organization struct {
	ShipperSeqNum int64                `json:"shipper_seq_num"`
	Name          string               `json:"name"`
	Settings      OrganizationSettings `json:"settings"`
	// TerminalProviderOrder is the shipper's carrier priority list, highest first.
	// An empty list means nothing is routable for this shipper.
	TerminalProviderOrder []carrier.ID `json:"terminal_provider_order"`
}

// OrganizationSettings are per-shipper switches.
type OrganizationSettings struct {
	Tobacco               bool `json:"tobacco"`
	TobaccoShipToBusiness bool `json:"tobacco_ship_to_business"`
}
