package crawlers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/SkoolCrawl/internal/models"
)

// ExtractFunc 把单个条目映射为实体,无法确定自然ID时返回nil
type ExtractFunc func(r *FieldReader, now time.Time) models.Entity

// Strategy 一个任务的提取策略
type Strategy struct {
	Task          models.TaskType
	EntryURL      string // 社区首页,第1页从这里点击标签进入列表
	ListingURL    string
	TabLocators   []models.Locator
	ItemSelectors []string
	NextSelectors []string
	Fields        Fields
	PageURL       func(page int) string
	Extract       ExtractFunc
}

// LocateItems 按顺序尝试条目选择器,返回第一个非空匹配及其选择器
// 全部为空时返回*models.NoItemsFoundError
func (s *Strategy) LocateItems(doc *goquery.Document, page int) (*goquery.Selection, string, error) {
	for _, sel := range s.ItemSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			return found, sel, nil
		}
	}
	return nil, "", &models.NoItemsFoundError{Task: s.Task, Page: page, Candidates: s.ItemSelectors}
}

// ExtractOne 提取单个条目,返回实体(可能为nil)和缺失的字段名
func (s *Strategy) ExtractOne(item *goquery.Selection, now time.Time) (models.Entity, []string) {
	r := s.Fields.Reader(item)
	e := s.Extract(r, now)
	return e, r.Missing()
}

// NextControl 在快照中查找可用的下一页控件
// 控件存在且未被禁用时返回其选择器
func (s *Strategy) NextControl(doc *goquery.Document) (string, bool) {
	for _, sel := range s.NextSelectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if isDisabled(found) {
			return "", false
		}
		return sel, true
	}
	return "", false
}

func isDisabled(el *goquery.Selection) bool {
	if _, ok := el.Attr("disabled"); ok {
		return true
	}
	if v, _ := el.Attr("aria-disabled"); v == "true" {
		return true
	}
	for _, class := range strings.Fields(el.AttrOr("class", "")) {
		if strings.Contains(strings.ToLower(class), "disabled") {
			return true
		}
	}
	return false
}

type compiledField struct {
	selectors []string
	attr      string
	pattern   *regexp.Regexp
}

// Fields 编译后的字段规则
type Fields map[string]compiledField

// CompileFields 编译字段规则中的正则
func CompileFields(specs map[string]models.FieldSpec) (Fields, error) {
	fields := make(Fields, len(specs))
	for name, spec := range specs {
		f := compiledField{selectors: spec.Selectors, attr: spec.Attr}
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("字段 %s 的正则无效: %w", name, err)
			}
			f.pattern = re
		}
		fields[name] = f
	}
	return fields, nil
}

// Reader 为条目元素创建字段读取器
func (f Fields) Reader(item *goquery.Selection) *FieldReader {
	return &FieldReader{item: item, fields: f}
}

// FieldReader 从条目元素读取字段,每个字段独立按候选选择器回退
type FieldReader struct {
	item    *goquery.Selection
	fields  Fields
	missing []string
}

// String 读取字段值,缺失时返回空字符串并记录
func (r *FieldReader) String(name string) string {
	v, ok := r.lookup(name)
	if !ok {
		r.missing = append(r.missing, name)
	}
	return v
}

// Int 读取整数字段,缺失或无法解析时返回nil
func (r *FieldReader) Int(name string) *int {
	v := r.String(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		r.missing = append(r.missing, name)
		return nil
	}
	return &n
}

// Missing 返回缺失的字段名
func (r *FieldReader) Missing() []string {
	return r.missing
}

func (r *FieldReader) lookup(name string) (string, bool) {
	f, ok := r.fields[name]
	if !ok {
		return "", false
	}
	for _, sel := range f.selectors {
		var el *goquery.Selection
		if r.item.Is(sel) {
			el = r.item
		} else {
			el = r.item.Find(sel).First()
		}
		if el.Length() == 0 {
			continue
		}

		var v string
		if f.attr != "" {
			v = el.AttrOr(f.attr, "")
		} else {
			v = strings.Join(strings.Fields(el.Text()), " ")
		}
		if f.pattern != nil {
			v = f.pattern.FindString(v)
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	return "", false
}
