package scoreview

import "math"

// 环形仪表盘的渲染参数。
//
// 前端用 SVG stroke-dashoffset 画进度环，半径固定 85 个显示单位：
// offset = 周长 × (1 − percent/100)
// 这个公式是前端视觉回归测试的对齐基准，改动需要同步 UI 快照。
const RingRadius = 85.0

// Ring 是下发给视图层的环形仪表盘参数。
type Ring struct {
	Radius        float64 `json:"radius"`
	Circumference float64 `json:"circumference"`
	Offset        float64 `json:"offset"`
	ColorFrom     string  `json:"color_from"`
	ColorTo       string  `json:"color_to"`
}

// Circumference 返回固定半径下的周长（2·π·85）。
func Circumference() float64 {
	return 2 * math.Pi * RingRadius
}

// Offset 返回给定百分比下的 dashoffset。入参越界时先收敛进 [0,100]。
func Offset(percent float64) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Circumference() * (1 - percent/100)
}

// Colors 返回渐变色停靠点：
// >50 红色系；>25 琥珀/紫色系；其余绿色/青色系。
func Colors(percent float64) (from, to string) {
	switch {
	case percent > 50:
		return "#f87171", "#dc2626"
	case percent > 25:
		return "#fbbf24", "#a855f7"
	default:
		return "#34d399", "#22d3ee"
	}
}

// Build 组合出完整的仪表盘参数。
func Build(percent float64) Ring {
	from, to := Colors(percent)
	return Ring{
		Radius:        RingRadius,
		Circumference: Circumference(),
		Offset:        Offset(percent),
		ColorFrom:     from,
		ColorTo:       to,
	}
}
