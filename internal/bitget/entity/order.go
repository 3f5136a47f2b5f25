package entity

// Статусы ордера
const (
	StatusNew      = "NEW"
	StatusFilled   = "FILLED"
	StatusCanceled = "CANCELED"
)

// Виды ордеров в составе плана
const (
	KindEntry = "ENTRY"
	KindSL    = "SL"
	KindTP    = "TP"
)

// Типы ордеров биржи
const (
	TypeMarket = "market"
	TypeLimit  = "limit"
	TypeStop   = "stop"
)

// OrderRequest параметры одной заявки к бирже
type OrderRequest struct {
	Symbol       string
	Side         string // buy | sell
	Type         string // market | limit | stop
	Size         float64
	Price        float64 // для limit
	TriggerPrice float64 // для stop
	ReduceOnly   bool
	ClientOID    string // детерминированный идентификатор: planID + вид ордера
}

// OrderAck ответ биржи на размещение заявки
type OrderAck struct {
	OrderID   string
	ClientOID string
	Status    string
}

// ExecutedOrder запись об одной размещенной заявке. Статус обновляется
// отдельным наблюдением за исполнением, не watcher'ом.
type ExecutedOrder struct {
	OrderID    string  `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Qty        float64 `json:"qty"`
	Status     string  `json:"status"`
	Kind       string  `json:"kind"` // ENTRY | SL | TP
	ReduceOnly bool    `json:"reduce_only"`
}
