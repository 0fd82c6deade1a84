package command

import (
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/wire"
)

// PlaceOrder is an order acceptance request for one checkout flow.
type PlaceOrder struct {
	Flow    customer.Flow
	Request wire.OrderRequest
}

// customerAliases maps field names used by the point-of-sale page to the
// canonical in-person names.
var customerAliases = map[string]string{
	"nombre": customer.FieldName,
	"correo": customer.FieldEmail,
}
