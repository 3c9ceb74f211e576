package worldtrak_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omnilogix/freight-bridge/internal/config"
	"github.com/omnilogix/freight-bridge/internal/worldtrak"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acceptedSOAP = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <AddNewShipmentV3Response xmlns="http://tempuri.org/">
      <AddNewShipmentV3Result>
        <Housebill>HB-99812</Housebill>
        <ErrorMessage></ErrorMessage>
      </AddNewShipmentV3Result>
    </AddNewShipmentV3Response>
  </soap:Body>
</soap:Envelope>`

const failedSOAP = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <AddNewShipmentV3Response xmlns="http://tempuri.org/">
      <AddNewShipmentV3Result>
        <Housebill></Housebill>
        <ErrorMessage>Invalid station code</ErrorMessage>
      </AddNewShipmentV3Result>
    </AddNewShipmentV3Response>
  </soap:Body>
</soap:Envelope>`

func TestAddShipment(t *testing.T) {
	t.Run("returns housebill on acceptance", func(t *testing.T) {
		// given
		var gotAction string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAction = r.Header.Get("SOAPAction")
			_, _ = w.Write([]byte(acceptedSOAP))
		}))
		defer server.Close()
		client := worldtrak.NewClient(config.SOAPEndpoint{URL: server.URL})

		// when
		body, result, err := client.AddShipment(context.Background(), "<soap:Envelope/>")

		// then
		require.NoError(t, err)
		assert.Equal(t, "http://tempuri.org/AddNewShipmentV3", gotAction)
		assert.Equal(t, "HB-99812", result.Housebill)
		assert.Contains(t, body, "HB-99812")
	})

	t.Run("surfaces the error message on failure", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(failedSOAP))
		}))
		defer server.Close()
		client := worldtrak.NewClient(config.SOAPEndpoint{URL: server.URL})

		// when
		body, result, err := client.AddShipment(context.Background(), "<soap:Envelope/>")

		// then
		require.Error(t, err)
		var regErr *worldtrak.RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Contains(t, regErr.Message, "Invalid station code")
		assert.Nil(t, result)
		assert.NotEmpty(t, body)
	})

	t.Run("treats empty housebill without message as failure", func(t *testing.T) {
		// given
		empty := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><AddNewShipmentV3Response xmlns="http://tempuri.org/"><AddNewShipmentV3Result></AddNewShipmentV3Result></AddNewShipmentV3Response></soap:Body></soap:Envelope>`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(empty))
		}))
		defer server.Close()
		client := worldtrak.NewClient(config.SOAPEndpoint{URL: server.URL})

		// when
		_, result, err := client.AddShipment(context.Background(), "<soap:Envelope/>")

		// then
		var regErr *worldtrak.RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Nil(t, result)
	})
}
