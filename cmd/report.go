// cmd/report.go

package main

import (
	"MtkECC/pkg/dump"
	"MtkECC/pkg/nand"
	"MtkECC/pkg/utils"
	"MtkECC/pkg/version"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

type report struct {
	RunID              string  `json:"run_id"`
	Version            string  `json:"version"`
	Input              string  `json:"input"`
	Output             string  `json:"output"`
	Chunks             int     `json:"chunks"`
	Force              bool    `json:"force"`
	KeepOOB            bool    `json:"keep_oob"`
	Pages              int     `json:"pages"`
	ErasedPages        int     `json:"erased_pages"`
	BitFlips           int     `json:"bitflips"`
	UncorrectablePages []int   `json:"uncorrectable_pages"`
	TaintedSparePage   *int    `json:"tainted_spare_page"`
	OutputXXH3         string  `json:"output_xxh3"`
	ElapsedMs          int64   `json:"elapsed_ms"`
	UserCPU            float64 `json:"user_cpu"`
	SysCPU             float64 `json:"sys_cpu"`
	Error              string  `json:"error,omitempty"`
}

func newReport(conf *nand.Config, input string, out *dump.Output, stats nand.Stats, err error) *report {
	ru := utils.GetRusage()
	r := &report{
		RunID:              uuid.New().String(),
		Version:            version.Version(),
		Input:              input,
		Output:             out.Name,
		Chunks:             conf.Chunks,
		Force:              conf.Policy == nand.Force,
		KeepOOB:            conf.Mode == nand.Raw,
		Pages:              stats.Pages,
		ErasedPages:        stats.ErasedPages,
		BitFlips:           stats.BitFlips,
		UncorrectablePages: stats.Uncorrectable,
		OutputXXH3:         fmt.Sprintf("%016x", out.Sum64()),
		ElapsedMs:          utils.Clock().Milliseconds(),
		UserCPU:            ru.GetUtime(),
		SysCPU:             ru.GetStime(),
	}
	if r.UncorrectablePages == nil {
		r.UncorrectablePages = []int{}
	}
	if stats.TaintedSparePage >= 0 {
		page := stats.TaintedSparePage
		r.TaintedSparePage = &page
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (r *report) save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
