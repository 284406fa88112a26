package orderbook

// TradeInfo 单边成交明细，价格为该侧驻留订单自身的价格
type TradeInfo struct {
	OrderID OrderID  `json:"orderId"`
	Price   Price    `json:"price"`
	Qty     Quantity `json:"qty"`
}

// Trade 一次撮合成交。买卖两边数量恒相等。
type Trade struct {
	Bid TradeInfo `json:"bid"`
	Ask TradeInfo `json:"ask"`
}

// LevelInfo 价格档位聚合视图
type LevelInfo struct {
	Price Price    `json:"price"`
	Qty   Quantity `json:"qty"`
}
