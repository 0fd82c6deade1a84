package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductID_AcceptsStringAndNumber(t *testing.T) {
	var lines []OrderLine
	err := json.Unmarshal([]byte(`[{"id":"7"},{"id":12,"quantity":3},{"id":"abc","price":2.5}]`), &lines)

	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, ProductID("7"), lines[0].ID)
	assert.Equal(t, ProductID("12"), lines[1].ID)
	assert.Equal(t, 3, lines[1].Units())
	assert.Equal(t, 1, lines[2].Units())
	require.NotNil(t, lines[2].Price)
	assert.Equal(t, "2.5", lines[2].Price.String())
}

func TestProductID_RejectsOtherTypes(t *testing.T) {
	var line OrderLine
	err := json.Unmarshal([]byte(`{"id":{"nested":true}}`), &line)

	assert.Error(t, err)
}

func TestOrderRequest_InPersonShape(t *testing.T) {
	body := `{"paymentMethod":"Card","customer":{"cedula":"123","name":"Ana","email":""},"orders":[{"id":1,"quantity":2}]}`

	var req OrderRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, "Card", req.PaymentMethod)
	assert.Equal(t, "Ana", req.Customer["name"])
	assert.Equal(t, 2, req.Orders[0].Units())
	assert.Nil(t, req.Orders[0].Price)
}

func TestOrderResponse_Encoding(t *testing.T) {
	resp := OrderResponse{Status: StatusSuccess, OrderID: "42", Totals: &Totals{Total: "10.00"}}

	data, err := json.Marshal(resp)

	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","order_id":"42","totals":{"total":10.00}}`, string(data))
	assert.True(t, resp.OK())
	assert.False(t, OrderResponse{Status: StatusError}.OK())
}
