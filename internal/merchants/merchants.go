// 包 merchants：商户清单输入（电子表格），每轮轮询以只读快照提供
package merchants

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"loadshed-monitor/internal/loadshed"
	"loadshed-monitor/internal/logger"
)

// Merchant：商户标识与所在坐标
type Merchant struct {
	UUID  string
	Coord loadshed.Coordinate
}

// List：静态商户清单；Snapshot 返回副本，调用方修改不影响下一轮
type List []Merchant

func (l List) Snapshot(context.Context) ([]Merchant, error) {
	return append([]Merchant(nil), l...), nil
}

var requiredColumns = []string{"latitude", "longitude", "merchant_uuid"}

// 文档注释：读取商户电子表格
// 背景：运营侧以 Excel 维护商户清单，表头需包含 latitude、longitude、merchant_uuid（顺序不限、忽略大小写）。
// 约束：文件或表头缺失返回错误（启动即失败）；单行坐标或 UUID 无法解析时跳过并记录 warn 日志。
func LoadExcel(path, sheet string) (List, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New("missing columns: " + strings.Join(missing, ", "))
	}
	var out List
	for n, row := range rows[1:] {
		line := n + 2
		m, err := parseRow(row, idx)
		if err != nil {
			logger.L().Warn("merchant_row_skipped", "file", path, "row", line, "err", err)
			continue
		}
		out = append(out, m)
	}
	logger.L().Info("merchants_loaded", "file", path, "sheet", sheet, "count", len(out))
	return out, nil
}

func parseRow(row []string, idx map[string]int) (Merchant, error) {
	cell := func(name string) string {
		i := idx[name]
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	if strings.Join(row, "") == "" {
		return Merchant{}, errors.New("empty row")
	}
	lat, err := strconv.ParseFloat(cell("latitude"), 64)
	if err != nil {
		return Merchant{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(cell("longitude"), 64)
	if err != nil {
		return Merchant{}, fmt.Errorf("longitude: %w", err)
	}
	id := cell("merchant_uuid")
	if _, err := uuid.Parse(id); err != nil {
		return Merchant{}, fmt.Errorf("merchant_uuid: %w", err)
	}
	c := loadshed.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Merchant{}, loadshed.ErrInvalidCoordinate
	}
	return Merchant{UUID: id, Coord: c}, nil
}
