// Package loader 从 YAML 或 JSON 文件中读取待优化的问题
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/utils"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var ErrUnsupportedFormat = errors.New("不支持的文件格式")

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatOf 根据扩展名判断文件格式
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load 读取并校验问题文件
func Load(path string) (*domain.Problem, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// Parse 解析并校验问题
func Parse(data []byte, format Format) (*domain.Problem, error) {
	p := &domain.Problem{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err := Validate(p); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate 先做结构体校验，再检查跨字段约束
func Validate(p *domain.Problem) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return utils.ValidateProblem(p)
}

// Marshal 按给定格式序列化问题，用于生成示例文件
func Marshal(p *domain.Problem, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
