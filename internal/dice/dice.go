// Package dice rolls the d10 used for initiative and hit locations, and
// evaluates damage expressions such as "3d6+2".
package dice

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidExpr indicates a damage expression could not be parsed.
var ErrInvalidExpr = errors.New("invalid dice expression")

var exprRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)\s*(?:([+-])\s*(\d+))?\s*$`)

// maxDice bounds how many dice one expression may roll.
const maxDice = 100

// Roller rolls dice from its own source. It is not safe for concurrent use.
type Roller struct {
	rng *rand.Rand
}

// New returns a Roller seeded with seed, or from the clock when seed is 0.
func New(seed uint64) *Roller {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Roller{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// D rolls one die with the given number of sides.
func (r *Roller) D(sides int) int {
	return 1 + r.rng.IntN(sides)
}

// D10 rolls a ten-sided die, 1..10.
func (r *Roller) D10() int {
	return r.D(10)
}

// Result is an evaluated expression.
type Result struct {
	Expr  string
	Rolls []int
	Total int
}

// Roll evaluates expr. Plain numbers are returned as-is; NdM, NdM+K and
// NdM-K are rolled. Totals never go below zero.
func (r *Roller) Roll(expr string) (Result, error) {
	expr = strings.TrimSpace(expr)
	res := Result{Expr: expr}
	if n, err := strconv.Atoi(expr); err == nil {
		if n < 0 {
			return res, ErrInvalidExpr
		}
		res.Total = n
		return res, nil
	}

	m := exprRe.FindStringSubmatch(expr)
	if m == nil {
		return res, ErrInvalidExpr
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count < 1 || count > maxDice || sides < 1 {
		return res, ErrInvalidExpr
	}

	for i := 0; i < count; i++ {
		v := r.D(sides)
		res.Rolls = append(res.Rolls, v)
		res.Total += v
	}
	if m[3] != "" {
		k, _ := strconv.Atoi(m[4])
		if m[3] == "+" {
			res.Total += k
		} else {
			res.Total -= k
		}
	}
	res.Total = max(res.Total, 0)
	return res, nil
}

// IsExpr reports whether s looks like a dice expression rather than a number.
func IsExpr(s string) bool {
	return exprRe.MatchString(s)
}
