package payload

import "fmt"

type universalShipmentCost struct {
	XMLName  struct{}         `xml:"UniversalShipment"`
	XmlnsNS  string           `xml:"xmlns:ns0,attr"`
	Shipment costShipmentBody `xml:"Shipment"`
}

type costShipmentBody struct {
	Xmlns       string      `xml:"xmlns,attr"`
	DataContext dataContext `xml:"DataContext"`
	JobCosting  jobCosting  `xml:"JobCosting"`
}

type jobCosting struct {
	ChargeLineCollection chargeLineCollection `xml:"ChargeLineCollection"`
}

type chargeLineCollection struct {
	ChargeLine chargeLine `xml:"ChargeLine"`
}

type chargeLine struct {
	Branch              codeElement    `xml:"Branch"`
	ChargeCode          codeElement    `xml:"ChargeCode"`
	Creditor            creditor       `xml:"Creditor"`
	CostRatingBehaviour codeElement    `xml:"CostRatingBehaviour"`
	SellRatingBehaviour codeElement    `xml:"SellRatingBehaviour"`
	Department          codeElement    `xml:"Department"`
	ImportMetaData      importMetaData `xml:"ImportMetaData"`
	CostOSAmount        string         `xml:"CostOSAmount"`
	SellOSAmount        string         `xml:"SellOSAmount"`
}

type codeElement struct {
	Code string `xml:"Code"`
}

type creditor struct {
	Type string `xml:"Type"`
	Key  string `xml:"Key"`
}

type importMetaData struct {
	Instruction                string                     `xml:"Instruction"`
	MatchingCriteriaCollection matchingCriteriaCollection `xml:"MatchingCriteriaCollection"`
}

type matchingCriteriaCollection struct {
	MatchingCriteria []matchingCriteria `xml:"MatchingCriteria"`
}

type matchingCriteria struct {
	FieldName string `xml:"FieldName"`
	Value     string `xml:"Value"`
}

// BuildChargeLine renders the JobCosting document that books the freight
// cost amount against the forwarding shipment referenceNo. The charge line
// constants address the fixed billing entity agreed with the receiving side.
func BuildChargeLine(referenceNo, amount string) (string, error) {
	validated, err := ParseAmount(amount)
	if err != nil {
		return "", err
	}

	doc := universalShipmentCost{
		XmlnsNS: cargowiseNamespace,
		Shipment: costShipmentBody{
			Xmlns: cargowiseNamespace,
			DataContext: dataContext{
				DataTargetCollection: dataTargetCollection{
					DataTarget: dataTarget{Type: forwardingShipmentTarget, Key: referenceNo},
				},
				Company:      &companyCode{Code: "ELP"},
				EnterpriseID: "TRX",
				ServerID:     "TS3",
			},
			JobCosting: jobCosting{
				ChargeLineCollection: chargeLineCollection{
					ChargeLine: chargeLine{
						Branch:              codeElement{Code: "LCK"},
						ChargeCode:          codeElement{Code: "FRT"},
						Creditor:            creditor{Type: "Organization", Key: "ICLCK"},
						CostRatingBehaviour: codeElement{Code: "REA"},
						SellRatingBehaviour: codeElement{Code: "REA"},
						Department:          codeElement{Code: "FEA"},
						ImportMetaData: importMetaData{
							Instruction: "UpdateAndInsertIfNotFound",
							MatchingCriteriaCollection: matchingCriteriaCollection{
								MatchingCriteria: []matchingCriteria{
									{FieldName: "ChargeCode", Value: "FRT"},
									{FieldName: "Description", Value: "Freight"},
								},
							},
						},
						CostOSAmount: validated,
					},
				},
			},
		},
	}

	out, err := marshalIndented(doc)
	if err != nil {
		return "", fmt.Errorf("failed to build charge line for %s: %w", referenceNo, err)
	}
	return out, nil
}
