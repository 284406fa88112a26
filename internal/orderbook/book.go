package orderbook

import (
	"container/list"
	"sync"
)

// priceLevel 价格档位：同价订单的 FIFO 队列
type priceLevel struct {
	price Price
	queue *list.List // *Order
}

// restingQty 档位内驻留数量之和，调用时现算
func (l *priceLevel) restingQty() Quantity {
	var total Quantity
	for e := l.queue.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).LeavesQty
	}
	return total
}

// Book 单一标的的限价订单簿。
//
// 买盘按价格降序、卖盘按价格升序维护，同价内先到先成交。
// orders 索引持有每笔驻留订单，订单自身携带档位队列中的位置，
// 撤单无需扫描。整个变更面由单一互斥锁保护：一次 AddOrder 可能
// 触及两侧任意多笔驻留订单，不存在更细粒度的安全拆分。
type Book struct {
	Symbol string

	// 买盘：价格降序（高价优先）
	bids map[Price]*priceLevel
	// 卖盘：价格升序（低价优先）
	asks map[Price]*priceLevel

	// 价格排序缓存
	bidPrices []Price
	askPrices []Price

	// 订单索引
	orders map[OrderID]*Order

	mu sync.Mutex
}

// NewBook 创建订单簿
func NewBook(symbol string) *Book {
	return &Book{
		Symbol:    symbol,
		bids:      make(map[Price]*priceLevel),
		asks:      make(map[Price]*priceLevel),
		bidPrices: make([]Price, 0),
		askPrices: make([]Price, 0),
		orders:    make(map[OrderID]*Order),
	}
}

// AddOrder 提交新订单并撮合，返回产生的成交。
//
// 订单号重复、或 FillAndKill 无法立即成交时静默丢弃，返回空成交。
func (b *Book) AddOrder(typ OrderType, id OrderID, side Side, price Price, qty Quantity) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(typ, id, side, price, qty)
}

func (b *Book) addLocked(typ OrderType, id OrderID, side Side, price Price, qty Quantity) []Trade {
	if _, exists := b.orders[id]; exists {
		return nil
	}
	if typ == FillAndKill && !b.canMatch(side, price) {
		return nil
	}

	b.insert(NewOrder(typ, id, side, price, qty))
	return b.match()
}

// CancelOrder 撤单。订单号不存在时为空操作。
func (b *Book) CancelOrder(id OrderID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, exists := b.orders[id]
	if !exists {
		return
	}
	b.remove(order)
}

// Modify 改单：撤掉原单，以原订单类型、新的方向/价格/数量重新提交。
// 新单排到新价格档位队尾，即改单放弃时间优先级。
// 订单号不存在时为空操作，返回空成交。
func (b *Book) Modify(id OrderID, side Side, price Price, qty Quantity) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, exists := b.orders[id]
	if !exists {
		return nil
	}
	typ := order.Type
	b.remove(order)
	return b.addLocked(typ, id, side, price, qty)
}

// Size 当前驻留订单数
func (b *Book) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// GetOrder 按订单号查驻留订单，不存在返回 nil。
// 返回值仅供读取，簿内状态只随公开操作变更。
func (b *Book) GetOrder(id OrderID) *Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders[id]
}

// LevelInfos 两侧档位聚合快照，排序与盘面一致（买降卖升）
func (b *Book) LevelInfos() (bids, asks []LevelInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bids = make([]LevelInfo, 0, len(b.bidPrices))
	for _, price := range b.bidPrices {
		bids = append(bids, LevelInfo{Price: price, Qty: b.bids[price].restingQty()})
	}

	asks = make([]LevelInfo, 0, len(b.askPrices))
	for _, price := range b.askPrices {
		asks = append(asks, LevelInfo{Price: price, Qty: b.asks[price].restingQty()})
	}

	return bids, asks
}

// BestBid 最优买档（价格、档位数量）
func (b *Book) BestBid() (Price, Quantity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.bidPrices) == 0 {
		return 0, 0, false
	}
	price := b.bidPrices[0]
	return price, b.bids[price].restingQty(), true
}

// BestAsk 最优卖档（价格、档位数量）
func (b *Book) BestAsk() (Price, Quantity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.askPrices) == 0 {
		return 0, 0, false
	}
	price := b.askPrices[0]
	return price, b.asks[price].restingQty(), true
}

// canMatch 对手盘非空且价格足以穿越对手最优价
func (b *Book) canMatch(side Side, price Price) bool {
	if side == SideBuy {
		if len(b.askPrices) == 0 {
			return false
		}
		return price >= b.askPrices[0]
	}
	if len(b.bidPrices) == 0 {
		return false
	}
	return price <= b.bidPrices[0]
}

// insert 订单入簿：挂到所在价格档位队尾并登记索引
func (b *Book) insert(order *Order) {
	levels, prices := b.sideOf(order.Side)

	level, exists := levels[order.Price]
	if !exists {
		level = &priceLevel{price: order.Price, queue: list.New()}
		levels[order.Price] = level
		*prices = insertPrice(*prices, order.Price, order.Side == SideBuy)
	}

	order.element = level.queue.PushBack(order)
	b.orders[order.ID] = order
}

// remove 订单出簿：摘出队列、清掉空档位、删除索引
func (b *Book) remove(order *Order) {
	levels, prices := b.sideOf(order.Side)

	level := levels[order.Price]
	if level != nil {
		level.queue.Remove(order.element)
		if level.queue.Len() == 0 {
			delete(levels, order.Price)
			*prices = removePrice(*prices, order.Price)
		}
	}
	order.element = nil

	delete(b.orders, order.ID)
}

// match 交叉撮合循环。
//
// 只要买一价 >= 卖一价，就让两侧队首按剩余数量较小者成交；
// 成交完的订单连同空档位立即清出。循环结束后两侧各查一次盘口
// 队首：若是 FillAndKill 订单则撤掉（FillAndKill 从不驻留）。
func (b *Book) match() []Trade {
	var trades []Trade

	for {
		if len(b.bidPrices) == 0 || len(b.askPrices) == 0 {
			break
		}
		bidPrice := b.bidPrices[0]
		askPrice := b.askPrices[0]
		if bidPrice < askPrice {
			break
		}

		bidLevel := b.bids[bidPrice]
		askLevel := b.asks[askPrice]

		for bidLevel.queue.Len() > 0 && askLevel.queue.Len() > 0 {
			bid := bidLevel.queue.Front().Value.(*Order)
			ask := askLevel.queue.Front().Value.(*Order)

			qty := min(bid.LeavesQty, ask.LeavesQty)
			bid.Fill(qty)
			ask.Fill(qty)

			trades = append(trades, Trade{
				Bid: TradeInfo{OrderID: bid.ID, Price: bid.Price, Qty: qty},
				Ask: TradeInfo{OrderID: ask.ID, Price: ask.Price, Qty: qty},
			})

			if bid.IsFilled() {
				b.remove(bid)
			}
			if ask.IsFilled() {
				b.remove(ask)
			}
		}
	}

	if len(b.bidPrices) > 0 {
		front := b.bids[b.bidPrices[0]].queue.Front().Value.(*Order)
		if front.Type == FillAndKill {
			b.remove(front)
		}
	}
	if len(b.askPrices) > 0 {
		front := b.asks[b.askPrices[0]].queue.Front().Value.(*Order)
		if front.Type == FillAndKill {
			b.remove(front)
		}
	}

	return trades
}

// sideOf 返回方向对应的档位表和价格缓存
func (b *Book) sideOf(side Side) (map[Price]*priceLevel, *[]Price) {
	if side == SideBuy {
		return b.bids, &b.bidPrices
	}
	return b.asks, &b.askPrices
}

// insertPrice 插入价格并保持排序
func insertPrice(prices []Price, price Price, descending bool) []Price {
	i := 0
	for i < len(prices) {
		if descending {
			if price > prices[i] {
				break
			}
		} else {
			if price < prices[i] {
				break
			}
		}
		i++
	}

	prices = append(prices, 0)
	copy(prices[i+1:], prices[i:])
	prices[i] = price
	return prices
}

// removePrice 移除价格
func removePrice(prices []Price, price Price) []Price {
	for i, p := range prices {
		if p == price {
			return append(prices[:i], prices[i+1:]...)
		}
	}
	return prices
}
