// Package marketdata 读取本地价格表并对齐为多资产价格矩阵.
package marketdata

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/quant/xerrors"
)

// DateLayout 价格表的日期格式.
const DateLayout = "2006-01-02"

// Prices 按日期升序对齐的收盘价矩阵.
type Prices struct {
	Tickers []string    `json:"tickers"`
	Dates   []time.Time `json:"dates"`
	Rows    [][]float64 `json:"rows"` // Rows[i][j] 为 Dates[i] 日 Tickers[j] 的价格
}

// ReadCSV 解析 "date,<ticker>,..." 表头的价格表. 任一资产缺失价格的日期会被整行丢弃，
// 使剩余各行在所有资产上对齐.
func ReadCSV(r io.Reader) (*Prices, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, xerrors.ErrEmptyData.WithDetail("price table is empty")
	}
	if err != nil {
		return nil, xerrors.ErrInvalidParams.WithDetail("read header").WithCause(err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, xerrors.ErrInvalidParams.WithDetail("header must be date,<ticker>..., got %v", header)
	}

	out := &Prices{Tickers: make([]string, len(header)-1)}
	for i, h := range header[1:] {
		out.Tickers[i] = strings.TrimSpace(h)
	}

	seen := make(map[time.Time]struct{})
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.ErrInvalidParams.WithDetail("line %d", line).WithCause(err)
		}

		date, err := time.Parse(DateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, xerrors.ErrInvalidParams.WithDetail("line %d: bad date %q", line, rec[0]).WithCause(err)
		}
		if _, dup := seen[date]; dup {
			return nil, xerrors.ErrInvalidParams.WithDetail("line %d: duplicate date %s", line, rec[0])
		}
		seen[date] = struct{}{}

		row, complete, err := parseRow(rec[1:], line)
		if err != nil {
			return nil, err
		}
		if !complete {
			continue
		}
		out.Dates = append(out.Dates, date)
		out.Rows = append(out.Rows, row)
	}

	if len(out.Rows) == 0 {
		return nil, xerrors.ErrEmptyData.WithDetail("no complete price rows")
	}
	out.sortByDate()
	return out, nil
}

// ReadFile 打开并解析价格文件.
func ReadFile(path string) (*Prices, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.ErrDataNotFound.WithDetail("open %s", path).WithCause(err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRow(cells []string, line int) ([]float64, bool, error) {
	row := make([]float64, len(cells))
	for j, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" || strings.EqualFold(cell, "nan") {
			return nil, false, nil
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false, xerrors.ErrInvalidParams.WithDetail("line %d column %d: bad price %q", line, j+2, cell).WithCause(err)
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, false, xerrors.ErrInvalidParams.WithDetail("line %d column %d: price must be positive, got %v", line, j+2, v)
		}
		row[j] = v
	}
	return row, true, nil
}

func (p *Prices) sortByDate() {
	idx := make([]int, len(p.Dates))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return p.Dates[a].Compare(p.Dates[b]) })

	dates := make([]time.Time, len(idx))
	rows := make([][]float64, len(idx))
	for i, k := range idx {
		dates[i] = p.Dates[k]
		rows[i] = p.Rows[k]
	}
	p.Dates, p.Rows = dates, rows
}

// Select 返回只包含指定资产列的副本，顺序与 tickers 一致.
func (p *Prices) Select(tickers ...string) (*Prices, error) {
	cols := make([]int, len(tickers))
	for i, t := range tickers {
		j := slices.Index(p.Tickers, t)
		if j < 0 {
			return nil, xerrors.ErrDataNotFound.WithDetail("ticker %q not in price table", t)
		}
		cols[i] = j
	}

	out := &Prices{
		Tickers: slices.Clone(tickers),
		Dates:   slices.Clone(p.Dates),
		Rows:    make([][]float64, len(p.Rows)),
	}
	for i, row := range p.Rows {
		sel := make([]float64, len(cols))
		for k, j := range cols {
			sel[k] = row[j]
		}
		out.Rows[i] = sel
	}
	return out, nil
}
