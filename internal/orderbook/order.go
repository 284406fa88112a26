// Package orderbook 限价订单簿撮合核心
package orderbook

import (
	"container/list"
	"fmt"
)

// Side 订单方向
type Side int

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderType 订单类型
type OrderType int

const (
	// GoodTillCancel 挂单直至成交或撤单
	GoodTillCancel OrderType = 1
	// FillAndKill 立即成交（全部或部分），从不驻留
	FillAndKill OrderType = 2
)

func (t OrderType) String() string {
	switch t {
	case GoodTillCancel:
		return "GTC"
	case FillAndKill:
		return "FAK"
	default:
		return "UNKNOWN"
	}
}

// Price 价格（最小单位整数，可为负）
type Price = int64

// Quantity 数量（最小单位整数）
type Quantity = int64

// OrderID 订单号（调用方提供，全簿唯一）
type OrderID = int64

// Order 一笔驻留委托的可变成交状态
type Order struct {
	ID        OrderID
	Type      OrderType
	Side      Side
	Price     Price
	OrigQty   Quantity
	LeavesQty Quantity

	// 所在价格档位队列中的位置，O(1) 撤单句柄
	element *list.Element
}

// NewOrder 创建新订单，剩余数量等于原始数量
func NewOrder(typ OrderType, id OrderID, side Side, price Price, qty Quantity) *Order {
	return &Order{
		ID:        id,
		Type:      typ,
		Side:      side,
		Price:     price,
		OrigQty:   qty,
		LeavesQty: qty,
	}
}

// FilledQty 已成交数量
func (o *Order) FilledQty() Quantity {
	return o.OrigQty - o.LeavesQty
}

// IsFilled 是否完全成交
func (o *Order) IsFilled() bool {
	return o.LeavesQty == 0
}

// Fill 扣减剩余数量。超量成交说明撮合逻辑有 bug，直接 panic。
func (o *Order) Fill(qty Quantity) {
	if qty > o.LeavesQty {
		panic(fmt.Sprintf("orderbook: fill %d exceeds leaves %d on order %d", qty, o.LeavesQty, o.ID))
	}
	o.LeavesQty -= qty
}
