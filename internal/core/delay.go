package core

import (
	"math/rand"
	"time"
)

// DelayPolicy 翻页延迟: 固定值,或[Min, Max]内的均匀随机值(毫秒粒度)
type DelayPolicy struct {
	Fixed time.Duration
	Min   time.Duration
	Max   time.Duration
}

// NewDelayPolicy 从毫秒配置构造,fixedMS>0时使用固定延迟
func NewDelayPolicy(fixedMS, minMS, maxMS int) DelayPolicy {
	return DelayPolicy{
		Fixed: time.Duration(fixedMS) * time.Millisecond,
		Min:   time.Duration(minMS) * time.Millisecond,
		Max:   time.Duration(maxMS) * time.Millisecond,
	}
}

// Next 返回下一次延迟
func (p DelayPolicy) Next() time.Duration {
	if p.Fixed > 0 {
		return p.Fixed
	}
	if p.Max <= p.Min {
		return p.Min
	}
	spanMS := (p.Max - p.Min).Milliseconds()
	return p.Min + time.Duration(rand.Int63n(spanMS+1))*time.Millisecond
}

// String 用于日志
func (p DelayPolicy) String() string {
	if p.Fixed > 0 {
		return p.Fixed.String()
	}
	return p.Min.String() + "-" + p.Max.String()
}
