package payload

import "encoding/xml"

// cargowiseNamespace is the schema namespace of every CargoWise Universal
// document this service produces.
const cargowiseNamespace = "http://www.cargowise.com/Schemas/Universal/2011/11"

// forwardingShipmentTarget addresses a document at an existing forwarding
// shipment by its CargoWise reference key.
const forwardingShipmentTarget = "ForwardingShipment"

// warehouseOrderTarget addresses a document event at a warehouse order.
const warehouseOrderTarget = "WarehouseOrder"

type dataTarget struct {
	Type string `xml:"Type"`
	Key  string `xml:"Key"`
}

type dataTargetCollection struct {
	DataTarget dataTarget `xml:"DataTarget"`
}

type dataContext struct {
	DataTargetCollection dataTargetCollection `xml:"DataTargetCollection"`
	Company              *companyCode         `xml:"Company,omitempty"`
	EnterpriseID         string               `xml:"EnterpriseID,omitempty"`
	ServerID             string               `xml:"ServerID,omitempty"`
}

type companyCode struct {
	Code string `xml:"Code"`
}

func marshalIndented(doc any) (string, error) {
	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
