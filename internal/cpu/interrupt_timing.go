package cpu

import "github.com/kjallen-dev/gbcore/internal/trace"

// unknown marks a [flags][halted][t] slot the reference implementation never
// observed a concrete value for; the trace sink's OnUnknownInterruptTiming is
// called and latency falls back to 1.
const unknown = -1

// interruptTiming[pendingFlags][halted][t] gives the number of T-cycles of
// extra latency before a pending, enabled interrupt actually begins being
// served, indexed by which of the 5 interrupt lines are pending (bit0
// VBlank .. bit4 Joypad), whether the CPU was halted, and which of the 4
// T-cycles within the current M-cycle the check happened on.
var interruptTiming = [32][2][4]int{
	0:  {{unknown, unknown, unknown, unknown}, {unknown, unknown, unknown, unknown}},
	1:  {{1, 1, unknown, unknown}, {1, unknown, unknown, unknown}},
	2:  {{1, 1, 1, 2}, {1, 2, 2, 2}},
	3:  {{1, 1, 1, 2}, {1, 2, 2, 2}},
	4:  {{1, 1, unknown, 2}, {unknown, unknown, unknown, 3}},
	5:  {{1, 1, unknown, 2}, {1, unknown, unknown, 3}},
	6:  {{1, 1, 1, 2}, {1, 2, 2, 2}},
	7:  {{1, 1, 1, 2}, {1, 2, 2, 2}},
	8:  {{1, 1, unknown, 2}, {unknown, unknown, unknown, 3}},
	9:  {{1, 1, unknown, 2}, {1, unknown, unknown, 3}},
	10: {{1, 1, 1, 2}, {1, 2, 2, 2}},
	11: {{1, 1, 1, 2}, {1, 2, 2, 2}},
	12: {{1, 1, unknown, 2}, {unknown, unknown, unknown, 3}},
	13: {{1, 1, unknown, 2}, {1, unknown, unknown, 3}},
	14: {{1, 1, 1, 2}, {1, 2, 2, 2}},
	15: {{1, 1, 1, 2}, {1, 2, 2, 2}},
	// 16-31 all involve JOYPAD (bit4) and use the joypad constant (1) uniformly;
	// the reference implementation notes it is "not sure about joypad timing".
	16: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	17: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	18: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	19: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	20: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	21: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	22: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	23: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	24: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	25: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	26: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	27: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	28: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	29: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	30: {{1, 1, 1, 1}, {1, 1, 1, 1}},
	31: {{1, 1, 1, 1}, {1, 1, 1, 1}},
}

// interruptLatency looks up the T-cycle latency for the given pending-flags
// bitmask, halted state, and t-phase (0-3), falling back to 1 and reporting
// through sink on an unknown slot.
func interruptLatency(sink trace.Sink, pendingFlags byte, halted bool, t int, pc uint16) int {
	h := 0
	if halted {
		h = 1
	}
	v := interruptTiming[pendingFlags&0x1F][h][t&3]
	if v == unknown {
		if sink != nil {
			sink.OnUnknownInterruptTiming(pc, pendingFlags, halted, t)
		}
		return 1
	}
	return v
}
