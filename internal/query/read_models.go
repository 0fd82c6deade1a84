package query

import "github.com/example/bakery-pos/internal/readmodel"

type OrderItemReadModel = readmodel.OrderItemReadModel
type OrderReadModel = readmodel.OrderReadModel
