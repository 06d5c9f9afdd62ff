// pkg/utils/rusage_other.go

//go:build !unix

package utils

import (
	"fmt"
	"time"
)

// Rusage is empty where getrusage(2) is not available.
type Rusage struct{}

func (ru *Rusage) GetUtime() float64 { return 0 }

func (ru *Rusage) GetStime() float64 { return 0 }

func (ru *Rusage) String() string {
	return fmt.Sprintf("wall %s", Clock().Round(time.Millisecond))
}

func GetRusage() *Rusage {
	return &Rusage{}
}
