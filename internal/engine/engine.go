// Package engine 订单簿的单一持有者：串行消费命令、对外发布事件
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/exchange/matchcore/internal/metrics"
	"github.com/exchange/matchcore/internal/orderbook"
)

// CommandType 命令类型
type CommandType int

const (
	CmdNewOrder CommandType = iota + 1
	CmdCancelOrder
	CmdModifyOrder
)

// Command 撮合命令
type Command struct {
	Type      CommandType
	OrderID   orderbook.OrderID
	OrderType orderbook.OrderType
	Side      orderbook.Side
	Price     orderbook.Price
	Qty       orderbook.Quantity
}

// EventType 事件类型
type EventType int

const (
	EventOrderAccepted EventType = iota + 1
	EventOrderRejected
	EventOrderCanceled
	EventTradeCreated
	EventOrderFilled
	EventOrderPartiallyFilled
)

// Event 撮合事件
type Event struct {
	Type      EventType
	Symbol    string
	Seq       int64
	Timestamp int64
	Data      interface{}
}

// OrderAcceptedData 订单入簿事件数据
type OrderAcceptedData struct {
	OrderID orderbook.OrderID
	Side    orderbook.Side
	Price   orderbook.Price
	Qty     orderbook.Quantity
}

// 拒绝原因
const (
	ReasonDuplicateOrderID = "DUPLICATE_ORDER_ID"
	ReasonFakNoMatch       = "FAK_NO_MATCH"
	ReasonOrderNotFound    = "ORDER_NOT_FOUND"
	ReasonInvalidQuantity  = "INVALID_QUANTITY"
	ReasonInvalidSide      = "INVALID_SIDE"
	ReasonInvalidOrderType = "INVALID_ORDER_TYPE"
)

// OrderRejectedData 订单拒绝事件数据
type OrderRejectedData struct {
	OrderID orderbook.OrderID
	Reason  string
}

// OrderCanceledData 撤单事件数据
type OrderCanceledData struct {
	OrderID   orderbook.OrderID
	LeavesQty orderbook.Quantity
}

// TradeCreatedData 成交事件数据
type TradeCreatedData struct {
	BidOrderID orderbook.OrderID
	AskOrderID orderbook.OrderID
	BidPrice   orderbook.Price
	AskPrice   orderbook.Price
	Qty        orderbook.Quantity
}

// OrderFilledData 订单完全成交事件数据
type OrderFilledData struct {
	OrderID orderbook.OrderID
}

// OrderPartiallyFilledData 订单部分成交事件数据
type OrderPartiallyFilledData struct {
	OrderID   orderbook.OrderID
	LastQty   orderbook.Quantity
	LeavesQty orderbook.Quantity
}

// Engine 单标的撮合引擎。
//
// 唯一的 run goroutine 按到达顺序执行命令，订单簿的全部变更都
// 经由它发生；事件携带单调递增的序号。
type Engine struct {
	symbol string
	book   *orderbook.Book

	cmdCh   chan *Command
	eventCh chan *Event

	seq int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine 创建撮合引擎
func NewEngine(symbol string, cmdBufferSize, eventBufferSize int) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		symbol:  symbol,
		book:    orderbook.NewBook(symbol),
		cmdCh:   make(chan *Command, cmdBufferSize),
		eventCh: make(chan *Event, eventBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动引擎
func (e *Engine) Start() {
	go e.run()
}

// Stop 停止引擎
func (e *Engine) Stop() {
	e.cancel()
}

// Submit 提交命令，不阻塞
func (e *Engine) Submit(cmd *Command) error {
	select {
	case <-e.ctx.Done():
		return fmt.Errorf("engine stopped")
	default:
	}

	select {
	case e.cmdCh <- cmd:
		return nil
	case <-e.ctx.Done():
		return fmt.Errorf("engine stopped")
	default:
		return fmt.Errorf("command queue full")
	}
}

// Events 获取事件通道
func (e *Engine) Events() <-chan *Event {
	return e.eventCh
}

func (e *Engine) Done() <-chan struct{} {
	return e.ctx.Done()
}

// Symbol 引擎标的
func (e *Engine) Symbol() string {
	return e.symbol
}

// Size 当前驻留订单数
func (e *Engine) Size() int {
	return e.book.Size()
}

// LevelInfos 两侧档位聚合快照
func (e *Engine) LevelInfos() (bids, asks []orderbook.LevelInfo) {
	return e.book.LevelInfos()
}

func (e *Engine) run() {
	for {
		select {
		case cmd := <-e.cmdCh:
			e.processCommand(cmd)
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *Engine) processCommand(cmd *Command) {
	switch cmd.Type {
	case CmdNewOrder:
		e.processNewOrder(cmd)
	case CmdCancelOrder:
		e.processCancelOrder(cmd)
	case CmdModifyOrder:
		e.processModifyOrder(cmd)
	}
	e.updateGauges()
}

func (e *Engine) processNewOrder(cmd *Command) {
	if reason, ok := e.validate(cmd); !ok {
		metrics.IncOrdersSubmitted("rejected")
		e.emit(EventOrderRejected, &OrderRejectedData{OrderID: cmd.OrderID, Reason: reason})
		return
	}
	if e.book.GetOrder(cmd.OrderID) != nil {
		metrics.IncOrdersSubmitted("rejected")
		e.emit(EventOrderRejected, &OrderRejectedData{OrderID: cmd.OrderID, Reason: ReasonDuplicateOrderID})
		return
	}

	start := time.Now()
	trades := e.book.AddOrder(cmd.OrderType, cmd.OrderID, cmd.Side, cmd.Price, cmd.Qty)
	metrics.ObserveAddOrderLatency(time.Since(start))

	if len(trades) == 0 && e.book.GetOrder(cmd.OrderID) == nil {
		// FillAndKill 未能立即成交，簿面未动
		metrics.IncOrdersSubmitted("rejected")
		e.emit(EventOrderRejected, &OrderRejectedData{OrderID: cmd.OrderID, Reason: ReasonFakNoMatch})
		return
	}

	metrics.IncOrdersSubmitted("accepted")
	e.emitMatchOutcome(cmd.OrderID, cmd.Qty, trades)
}

func (e *Engine) processCancelOrder(cmd *Command) {
	order := e.book.GetOrder(cmd.OrderID)
	if order == nil {
		e.emit(EventOrderRejected, &OrderRejectedData{OrderID: cmd.OrderID, Reason: ReasonOrderNotFound})
		return
	}
	leaves := order.LeavesQty

	e.book.CancelOrder(cmd.OrderID)
	e.emit(EventOrderCanceled, &OrderCanceledData{OrderID: cmd.OrderID, LeavesQty: leaves})
}

func (e *Engine) processModifyOrder(cmd *Command) {
	if reason, ok := e.validate(cmd); !ok {
		e.emit(EventOrderRejected, &OrderRejectedData{OrderID: cmd.OrderID, Reason: reason})
		return
	}
	if e.book.GetOrder(cmd.OrderID) == nil {
		e.emit(EventOrderRejected, &OrderRejectedData{OrderID: cmd.OrderID, Reason: ReasonOrderNotFound})
		return
	}

	trades := e.book.Modify(cmd.OrderID, cmd.Side, cmd.Price, cmd.Qty)
	e.emitMatchOutcome(cmd.OrderID, cmd.Qty, trades)
}

// validate 命令级校验；订单簿本身不做业务校验
func (e *Engine) validate(cmd *Command) (string, bool) {
	if cmd.Qty <= 0 {
		return ReasonInvalidQuantity, false
	}
	if cmd.Side != orderbook.SideBuy && cmd.Side != orderbook.SideSell {
		return ReasonInvalidSide, false
	}
	if cmd.Type == CmdNewOrder &&
		cmd.OrderType != orderbook.GoodTillCancel && cmd.OrderType != orderbook.FillAndKill {
		return ReasonInvalidOrderType, false
	}
	return "", true
}

// emitMatchOutcome 把一次 AddOrder/Modify 的结果翻译为事件流：
// 每笔成交一条 TradeCreated，涉及订单按最终状态给出
// Filled / PartiallyFilled，提交的订单若仍驻留则给出 Accepted，
// FillAndKill 部分成交后被清出则给出 Canceled。
func (e *Engine) emitMatchOutcome(id orderbook.OrderID, origQty orderbook.Quantity, trades []orderbook.Trade) {
	var executed orderbook.Quantity

	for _, trade := range trades {
		metrics.IncTradesCreated(e.symbol)
		e.emit(EventTradeCreated, &TradeCreatedData{
			BidOrderID: trade.Bid.OrderID,
			AskOrderID: trade.Ask.OrderID,
			BidPrice:   trade.Bid.Price,
			AskPrice:   trade.Ask.Price,
			Qty:        trade.Bid.Qty,
		})

		counterID := trade.Bid.OrderID
		if counterID == id {
			counterID = trade.Ask.OrderID
		}
		if maker := e.book.GetOrder(counterID); maker == nil {
			e.emit(EventOrderFilled, &OrderFilledData{OrderID: counterID})
		} else {
			e.emit(EventOrderPartiallyFilled, &OrderPartiallyFilledData{
				OrderID:   counterID,
				LastQty:   trade.Bid.Qty,
				LeavesQty: maker.LeavesQty,
			})
		}
		executed += trade.Bid.Qty
	}

	if resting := e.book.GetOrder(id); resting != nil {
		if executed > 0 {
			e.emit(EventOrderPartiallyFilled, &OrderPartiallyFilledData{
				OrderID:   id,
				LastQty:   executed,
				LeavesQty: resting.LeavesQty,
			})
		}
		e.emit(EventOrderAccepted, &OrderAcceptedData{
			OrderID: id,
			Side:    resting.Side,
			Price:   resting.Price,
			Qty:     resting.LeavesQty,
		})
	} else if executed == origQty {
		e.emit(EventOrderFilled, &OrderFilledData{OrderID: id})
	} else {
		// FillAndKill 吃掉部分流动性后剩余被清出
		e.emit(EventOrderCanceled, &OrderCanceledData{OrderID: id, LeavesQty: origQty - executed})
	}
}

func (e *Engine) updateGauges() {
	bids, asks := e.book.LevelInfos()
	metrics.SetRestingOrders(e.symbol, e.book.Size())
	metrics.SetBookDepth(e.symbol, "buy", len(bids))
	metrics.SetBookDepth(e.symbol, "sell", len(asks))
}

func (e *Engine) emit(eventType EventType, data interface{}) {
	e.seq++

	event := &Event{
		Type:      eventType,
		Symbol:    e.symbol,
		Seq:       e.seq,
		Timestamp: time.Now().UnixNano(),
		Data:      data,
	}

	select {
	case e.eventCh <- event:
	case <-e.ctx.Done():
	}
}
