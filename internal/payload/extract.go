package payload

import (
	"encoding/xml"
	"fmt"
)

// Inbound booking document shapes. Only the fields the registration needs
// are decoded; everything else in the document is ignored.
type bookingDocument struct {
	XMLName  struct{}        `xml:"UniversalShipment"`
	Shipment bookingShipment `xml:"Shipment"`
}

type bookingShipment struct {
	DataContext struct {
		DataSourceCollection struct {
			DataSource []struct {
				Type string `xml:"Type"`
				Key  string `xml:"Key"`
			} `xml:"DataSource"`
		} `xml:"DataSourceCollection"`
	} `xml:"DataContext"`
	OrganizationAddressCollection bookingAddressCollection `xml:"OrganizationAddressCollection"`
	SubShipmentCollection         struct {
		SubShipment struct {
			LocalProcessing struct {
				LCLAvailable          string `xml:"LCLAvailable"`
				OrderNumberCollection struct {
					OrderNumber struct {
						OrderReference string `xml:"OrderReference"`
					} `xml:"OrderNumber"`
				} `xml:"OrderNumberCollection"`
			} `xml:"LocalProcessing"`
			OrganizationAddressCollection bookingAddressCollection `xml:"OrganizationAddressCollection"`
			PackingLineCollection         struct {
				PackingLine []bookingPackingLine `xml:"PackingLine"`
			} `xml:"PackingLineCollection"`
		} `xml:"SubShipment"`
	} `xml:"SubShipmentCollection"`
}

type bookingAddressCollection struct {
	OrganizationAddress []bookingAddress `xml:"OrganizationAddress"`
}

type bookingAddress struct {
	AddressType string `xml:"AddressType"`
	Address1    string `xml:"Address1"`
	Address2    string `xml:"Address2"`
	City        string `xml:"City"`
	CompanyName string `xml:"CompanyName"`
	Postcode    string `xml:"Postcode"`
	State       struct {
		Value string `xml:",chardata"`
	} `xml:"State"`
	Country struct {
		Code string `xml:"Code"`
	} `xml:"Country"`
	Email string `xml:"Email"`
	Phone string `xml:"Phone"`
	Fax   string `xml:"Fax"`
}

type bookingPackingLine struct {
	GoodsDescription string  `xml:"GoodsDescription"`
	Height           float64 `xml:"Height"`
	Length           float64 `xml:"Length"`
	Width            float64 `xml:"Width"`
	Weight           float64 `xml:"Weight"`
	PackQty          string  `xml:"PackQty"`
	PackType         struct {
		Code string `xml:"Code"`
	} `xml:"PackType"`
}

const (
	shipperAddressType   = "ReceivingForwarderAddress"
	consigneeAddressType = "ConsignorPickupDeliveryAddress"
)

// ExtractShipmentData parses an inbound booking document and maps it to the
// registration fields, converting packing line dimensions from centimeters
// and kilograms to the inch/pound values the legacy system stores. The
// caller fills in CustomerNo and Station from the customer profile before
// validation.
func ExtractShipmentData(raw []byte) (*ShipmentData, error) {
	var doc bookingDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse booking document: %w", err)
	}

	data := &ShipmentData{}
	for _, source := range doc.Shipment.DataContext.DataSourceCollection.DataSource {
		if source.Type == forwardingShipmentTarget {
			data.ForwardingShipmentKey = source.Key
			break
		}
	}

	sub := doc.Shipment.SubShipmentCollection.SubShipment
	data.ReferenceNumber = sub.LocalProcessing.OrderNumberCollection.OrderNumber.OrderReference
	data.ReadyDate = sub.LocalProcessing.LCLAvailable
	data.ReadyTime = sub.LocalProcessing.LCLAvailable

	if addr := findAddress(doc.Shipment.OrganizationAddressCollection, shipperAddressType); addr != nil {
		data.Shipper = mapAddress(addr)
	}
	if addr := findAddress(sub.OrganizationAddressCollection, consigneeAddressType); addr != nil {
		data.Consignee = mapAddress(addr)
	}

	for _, line := range sub.PackingLineCollection.PackingLine {
		data.Lines = append(data.Lines, ShipmentLine{
			Description: line.GoodsDescription,
			Length:      CmToInches(line.Length),
			Width:       CmToInches(line.Width),
			Height:      CmToInches(line.Height),
			Pieces:      line.PackQty,
			PieceType:   line.PackType.Code,
			Weight:      KgToPounds(line.Weight),
		})
	}

	return data, nil
}

func findAddress(coll bookingAddressCollection, addressType string) *bookingAddress {
	for i := range coll.OrganizationAddress {
		if coll.OrganizationAddress[i].AddressType == addressType {
			return &coll.OrganizationAddress[i]
		}
	}
	return nil
}

func mapAddress(addr *bookingAddress) PartyAddress {
	return PartyAddress{
		Name:     addr.CompanyName,
		Address1: addr.Address1,
		Address2: addr.Address2,
		City:     addr.City,
		State:    addr.State.Value,
		Zip:      addr.Postcode,
		Country:  addr.Country.Code,
		Email:    addr.Email,
		Phone:    addr.Phone,
		Fax:      addr.Fax,
	}
}
