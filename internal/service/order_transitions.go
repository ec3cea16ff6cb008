package service

import "github.com/example/herbalshop/internal/datamodels/order"

// Actor 发起状态变更的调用方
type Actor string

const (
	ActorAdmin Actor = "admin"
	ActorUser  Actor = "user"
	// ActorLink 邮件中的免登录链接，视为权限更弱的管理员，只能走链接对应的几条边
	ActorLink Actor = "link"
)

type orderEdge struct {
	to     order.Status
	actors []Actor
}

// orderEdges 订单状态机的全部合法边。Rejected / Cancelled / Delivered 为终态。
var orderEdges = map[order.Status][]orderEdge{
	order.StatusOrdered: placedEdges(),
	order.StatusPending: placedEdges(),
	order.StatusAccepted: {
		{to: order.StatusShipped, actors: []Actor{ActorAdmin}},
		{to: order.StatusCancelled, actors: []Actor{ActorAdmin}},
	},
	order.StatusShipped: {
		{to: order.StatusDelivered, actors: []Actor{ActorAdmin}},
		{to: order.StatusCancelled, actors: []Actor{ActorAdmin}},
	},
	order.StatusCancellationRequested: {
		{to: order.StatusCancelled, actors: []Actor{ActorAdmin, ActorLink}},
	},
}

func placedEdges() []orderEdge {
	return []orderEdge{
		{to: order.StatusAccepted, actors: []Actor{ActorAdmin, ActorLink}},
		{to: order.StatusRejected, actors: []Actor{ActorAdmin, ActorLink}},
		{to: order.StatusCancelled, actors: []Actor{ActorAdmin}},
		{to: order.StatusCancellationRequested, actors: []Actor{ActorUser}},
	}
}

// CanTransition 判断 actor 能否把订单从 from 变更到 to
func CanTransition(from, to order.Status, actor Actor) bool {
	for _, e := range orderEdges[from] {
		if e.to != to {
			continue
		}
		for _, a := range e.actors {
			if a == actor {
				return true
			}
		}
	}
	return false
}

// AllowedTransitions 返回 actor 在 from 状态下可以请求的目标状态
func AllowedTransitions(from order.Status, actor Actor) []order.Status {
	var out []order.Status
	for _, e := range orderEdges[from] {
		if CanTransition(from, e.to, actor) {
			out = append(out, e.to)
		}
	}
	return out
}

// IsTerminal 终态没有任何出边
func IsTerminal(s order.Status) bool {
	return len(orderEdges[s]) == 0
}

// isPlaced 用户只能在这两个状态下申请取消
func isPlaced(s order.Status) bool {
	return s == order.StatusOrdered || s == order.StatusPending
}

// KnownStatus 判断是否为订单状态集合中的值
func KnownStatus(s order.Status) bool {
	switch s {
	case order.StatusOrdered, order.StatusPending, order.StatusAccepted, order.StatusRejected,
		order.StatusShipped, order.StatusDelivered, order.StatusCancelled, order.StatusCancellationRequested:
		return true
	}
	return false
}
