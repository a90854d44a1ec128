package commands

import (
	"errors"
	"strconv"
	"strings"
)

const (
	MaxDice  = 100
	MaxFaces = 1_000_000
)

var ErrInvalidDice = errors.New("invalid dice")

// Dice is a parsed NdF expression
type Dice struct {
	Count int
	Faces int
}

func (d Dice) String() string {
	return strconv.Itoa(d.Count) + "d" + strconv.Itoa(d.Faces)
}

// ParseDice parses expressions like 2d6, ignoring case
func ParseDice(s string) (Dice, error) {
	parts := strings.Split(strings.ToLower(s), "d")
	if len(parts) != 2 {
		return Dice{}, ErrInvalidDice
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return Dice{}, ErrInvalidDice
	}
	faces, err := strconv.Atoi(parts[1])
	if err != nil {
		return Dice{}, ErrInvalidDice
	}
	if count < 1 || faces < 1 || count > MaxDice || faces > MaxFaces {
		return Dice{}, ErrInvalidDice
	}
	return Dice{Count: count, Faces: faces}, nil
}

// Roll returns one result per die, each uniform in [1, Faces], and their sum
func (d Dice) Roll(r Rand) ([]int, int) {
	results := make([]int, d.Count)
	total := 0
	for i := range results {
		results[i] = 1 + r.IntN(d.Faces)
		total += results[i]
	}
	return results, total
}
