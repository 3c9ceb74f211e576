package payload

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// sourcePaths maps required shipment fields back to the element path in the
// inbound booking document, so a rejection names where the data was missing.
var sourcePaths = map[string]string{
	"ForwardingShipmentKey": "Shipment.DataContext.DataSourceCollection.DataSource.Key",
	"CustomerNo":            "customer profile bill-to",
	"Station":               "customer profile station",
	"Lines":                 "Shipment.SubShipmentCollection.SubShipment.PackingLineCollection",
}

// PartyAddress is one side of the shipment, shipper or consignee.
type PartyAddress struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Email    string
	Phone    string
	Fax      string
}

// ShipmentLine is one packing line, already converted to inches and pounds.
type ShipmentLine struct {
	Description string
	Length      string
	Width       string
	Height      string
	Pieces      string
	PieceType   string
	Weight      string
}

// ShipmentData carries everything needed to register a shipment in the
// legacy system. Dimensions are inch/pound strings produced by the
// extraction step.
type ShipmentData struct {
	ForwardingShipmentKey string `validate:"required"`
	ReferenceNumber       string
	CustomerNo            string `validate:"required"`
	Station               string `validate:"required"`
	Shipper               PartyAddress
	Consignee             PartyAddress
	ReadyDate             string
	ReadyTime             string
	Lines                 []ShipmentLine `validate:"min=1"`
}

// Validate checks the required registration fields and reports the first
// violation with the source path the data should have come from.
func (d *ShipmentData) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		path, ok := sourcePaths[field]
		if !ok {
			path = "unknown source"
		}
		return fmt.Errorf("missing required shipment field %s (source %s)", field, path)
	}
	return fmt.Errorf("shipment data validation failed: %w", err)
}

type soapEnvelope struct {
	XMLName  struct{}   `xml:"soap:Envelope"`
	XmlnsXSI string     `xml:"xmlns:xsi,attr"`
	XmlnsXSD string     `xml:"xmlns:xsd,attr"`
	XmlnsEnv string     `xml:"xmlns:soap,attr"`
	Header   soapHeader `xml:"soap:Header"`
	Body     soapBody   `xml:"soap:Body"`
}

type soapHeader struct {
	AuthHeader authHeader `xml:"AuthHeader"`
}

type authHeader struct {
	Xmlns    string `xml:"xmlns,attr"`
	UserName string `xml:"UserName"`
	Password string `xml:"Password"`
}

type soapBody struct {
	AddNewShipment addNewShipment `xml:"AddNewShipmentV3"`
}

type addNewShipment struct {
	Xmlns    string   `xml:"xmlns,attr"`
	ShipData shipData `xml:"oShipData"`
}

type shipData struct {
	ReferenceList     referenceList    `xml:"ReferenceList"`
	ServiceLevel      string           `xml:"ServiceLevel"`
	PayType           string           `xml:"PayType"`
	ShipmentType      string           `xml:"ShipmentType"`
	Mode              string           `xml:"Mode"`
	DeclaredType      string           `xml:"DeclaredType"`
	CustomerNo        string           `xml:"CustomerNo"`
	BillToAcct        string           `xml:"BillToAcct"`
	Station           string           `xml:"Station"`
	ShipperAddress1   string           `xml:"ShipperAddress1"`
	ShipperAddress2   string           `xml:"ShipperAddress2"`
	ShipperCity       string           `xml:"ShipperCity"`
	ShipperName       string           `xml:"ShipperName"`
	ShipperCountry    string           `xml:"ShipperCountry"`
	ShipperEmail      string           `xml:"ShipperEmail"`
	ShipperFax        string           `xml:"ShipperFax"`
	ShipperPhone      string           `xml:"ShipperPhone"`
	ShipperZip        string           `xml:"ShipperZip"`
	ShipperState      string           `xml:"ShipperState"`
	ReadyDate         string           `xml:"ReadyDate"`
	ReadyTime         string           `xml:"ReadyTime"`
	ConsigneeAddress1 string           `xml:"ConsigneeAddress1"`
	ConsigneeAddress2 string           `xml:"ConsigneeAddress2"`
	ConsigneeCity     string           `xml:"ConsigneeCity"`
	ConsigneeName     string           `xml:"ConsigneeName"`
	ConsigneeCountry  string           `xml:"ConsigneeCountry"`
	ConsigneeEmail    string           `xml:"ConsigneeEmail"`
	ConsigneeFax      string           `xml:"ConsigneeFax"`
	ConsigneePhone    string           `xml:"ConsigneePhone"`
	ConsigneeZip      string           `xml:"ConsigneeZip"`
	ConsigneeState    string           `xml:"ConsigneeState"`
	ShipmentLineList  shipmentLineList `xml:"ShipmentLineList"`
}

type referenceList struct {
	Refs []shipmentRef `xml:"NewShipmentRefsV3"`
}

type shipmentRef struct {
	ReferenceNo    string `xml:"ReferenceNo"`
	CustomerTypeV3 string `xml:"CustomerTypeV3"`
	RefTypeId      string `xml:"RefTypeId"`
}

type shipmentLineList struct {
	Lines []dimLine `xml:"NewShipmentDimLineV3"`
}

type dimLine struct {
	Description string `xml:"Description"`
	Height      string `xml:"Height"`
	Length      string `xml:"Length"`
	DimUOMV3    string `xml:"DimUOMV3"`
	Pieces      string `xml:"Pieces"`
	PieceType   string `xml:"PieceType"`
	Weight      string `xml:"Weight"`
	WeightUOMV3 string `xml:"WeightUOMV3"`
	Width       string `xml:"Width"`
}

const tempuriNamespace = "http://tempuri.org/"

// BuildAddShipment renders the SOAP envelope that registers a new shipment,
// including the back-reference list tying the legacy order to its
// forwarding shipment and customer order number.
func BuildAddShipment(data *ShipmentData, username, password string) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}

	lines := make([]dimLine, 0, len(data.Lines))
	for _, line := range data.Lines {
		lines = append(lines, dimLine{
			Description: line.Description,
			Height:      line.Height,
			Length:      line.Length,
			DimUOMV3:    "in",
			Pieces:      line.Pieces,
			PieceType:   line.PieceType,
			Weight:      line.Weight,
			WeightUOMV3: "lb",
			Width:       line.Width,
		})
	}

	env := soapEnvelope{
		XmlnsXSI: "http://www.w3.org/2001/XMLSchema-instance",
		XmlnsXSD: "http://www.w3.org/2001/XMLSchema",
		XmlnsEnv: "http://schemas.xmlsoap.org/soap/envelope/",
		Header: soapHeader{
			AuthHeader: authHeader{
				Xmlns:    tempuriNamespace,
				UserName: username,
				Password: password,
			},
		},
		Body: soapBody{
			AddNewShipment: addNewShipment{
				Xmlns: tempuriNamespace,
				ShipData: shipData{
					ReferenceList: referenceList{
						Refs: []shipmentRef{
							{ReferenceNo: data.ForwardingShipmentKey, CustomerTypeV3: "BillTo", RefTypeId: "SID"},
							{ReferenceNo: data.ReferenceNumber, CustomerTypeV3: "BillTo", RefTypeId: "ORD"},
						},
					},
					ServiceLevel:      "EC",
					PayType:           "3",
					ShipmentType:      "Shipment",
					Mode:              "Domestic",
					DeclaredType:      "LL",
					CustomerNo:        data.CustomerNo,
					BillToAcct:        data.CustomerNo,
					Station:           data.Station,
					ShipperAddress1:   data.Shipper.Address1,
					ShipperAddress2:   data.Shipper.Address2,
					ShipperCity:       data.Shipper.City,
					ShipperName:       data.Shipper.Name,
					ShipperCountry:    data.Shipper.Country,
					ShipperEmail:      data.Shipper.Email,
					ShipperFax:        data.Shipper.Fax,
					ShipperPhone:      data.Shipper.Phone,
					ShipperZip:        data.Shipper.Zip,
					ShipperState:      data.Shipper.State,
					ReadyDate:         data.ReadyDate,
					ReadyTime:         data.ReadyTime,
					ConsigneeAddress1: data.Consignee.Address1,
					ConsigneeAddress2: data.Consignee.Address2,
					ConsigneeCity:     data.Consignee.City,
					ConsigneeName:     data.Consignee.Name,
					ConsigneeCountry:  data.Consignee.Country,
					ConsigneeEmail:    data.Consignee.Email,
					ConsigneeFax:      data.Consignee.Fax,
					ConsigneePhone:    data.Consignee.Phone,
					ConsigneeZip:      data.Consignee.Zip,
					ConsigneeState:    data.Consignee.State,
					ShipmentLineList:  shipmentLineList{Lines: lines},
				},
			},
		},
	}

	out, err := xml.MarshalIndent(env, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to build shipment envelope for %s: %w", data.ForwardingShipmentKey, err)
	}
	return xml.Header + string(out), nil
}

type housebillNotice struct {
	XMLName  struct{}          `xml:"UniversalShipment"`
	XmlnsNS  string            `xml:"xmlns:ns0,attr"`
	Shipment housebillShipment `xml:"Shipment"`
}

type housebillShipment struct {
	Xmlns                         string            `xml:"xmlns,attr"`
	DataContext                   dataContext       `xml:"DataContext"`
	AdditionalReferenceCollection additionalRefColl `xml:"AdditionalReferenceCollection"`
}

type additionalRefColl struct {
	Content             string        `xml:"Content,attr"`
	AdditionalReference additionalRef `xml:"AdditionalReference"`
}

type additionalRef struct {
	Type            codeElement `xml:"Type"`
	ReferenceNumber string      `xml:"ReferenceNumber"`
}

// BuildHousebillReference renders the follow-up notification that writes the
// newly assigned housebill back onto the forwarding shipment as a WHB
// additional reference.
func BuildHousebillReference(referenceNo, housebill string) (string, error) {
	doc := housebillNotice{
		XmlnsNS: cargowiseNamespace,
		Shipment: housebillShipment{
			Xmlns: cargowiseNamespace,
			DataContext: dataContext{
				DataTargetCollection: dataTargetCollection{
					DataTarget: dataTarget{Type: forwardingShipmentTarget, Key: referenceNo},
				},
			},
			AdditionalReferenceCollection: additionalRefColl{
				Content: "Complete",
				AdditionalReference: additionalRef{
					Type:            codeElement{Code: "WHB"},
					ReferenceNumber: housebill,
				},
			},
		},
	}

	out, err := marshalIndented(doc)
	if err != nil {
		return "", fmt.Errorf("failed to build housebill reference for %s: %w", referenceNo, err)
	}
	return out, nil
}
