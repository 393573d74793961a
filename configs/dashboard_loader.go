package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DashboardConfig はdashboard.yamlの構造を定義
type DashboardConfig struct {
	Page struct {
		Title       string `yaml:"title"`
		Icon        string `yaml:"icon"`
		Heading     string `yaml:"heading"`
		Description string `yaml:"description"`
	} `yaml:"page"`

	Sidebar struct {
		Header      string `yaml:"header"`
		ButtonLabel string `yaml:"button_label"`
	} `yaml:"sidebar"`

	Forecast struct {
		DefaultHorizonDays int `yaml:"default_horizon_days"`
	} `yaml:"forecast"`

	Chart struct {
		Height     int    `yaml:"height"`
		XAxisTitle string `yaml:"x_axis_title"`
		YAxisTitle string `yaml:"y_axis_title"`
	} `yaml:"chart"`
}

// DefaultDashboardConfig は設定ファイルが無い場合に使う既定値を返す
func DefaultDashboardConfig() *DashboardConfig {
	c := &DashboardConfig{}
	c.Page.Title = "Live Sales Forecaster"
	c.Page.Icon = "📊"
	c.Page.Heading = "📉 Live Grocery Sales Forecaster"
	c.Page.Description = "Select a model, store, item, and date range to generate a live forecast."
	c.Sidebar.Header = "Forecasting Inputs"
	c.Sidebar.ButtonLabel = "🚀 Generate Forecast"
	c.Forecast.DefaultHorizonDays = 14
	c.Chart.Height = 400
	c.Chart.XAxisTitle = "Date"
	c.Chart.YAxisTitle = "Predicted Unit Sales"
	return c
}

// LoadDashboardConfig はYAMLファイルからダッシュボード設定を読み込む。
// ファイルが存在しない場合は既定値を返し、未指定の項目も既定値で補う。
func LoadDashboardConfig(path string) (*DashboardConfig, error) {
	cfg := DefaultDashboardConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("ダッシュボード設定ファイルの読み込みに失敗: %w", err)
	}

	var loaded DashboardConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}

	cfg.merge(&loaded)
	return cfg, nil
}

func (c *DashboardConfig) merge(o *DashboardConfig) {
	if o.Page.Title != "" {
		c.Page.Title = o.Page.Title
	}
	if o.Page.Icon != "" {
		c.Page.Icon = o.Page.Icon
	}
	if o.Page.Heading != "" {
		c.Page.Heading = o.Page.Heading
	}
	if o.Page.Description != "" {
		c.Page.Description = o.Page.Description
	}
	if o.Sidebar.Header != "" {
		c.Sidebar.Header = o.Sidebar.Header
	}
	if o.Sidebar.ButtonLabel != "" {
		c.Sidebar.ButtonLabel = o.Sidebar.ButtonLabel
	}
	if o.Forecast.DefaultHorizonDays > 0 {
		c.Forecast.DefaultHorizonDays = o.Forecast.DefaultHorizonDays
	}
	if o.Chart.Height > 0 {
		c.Chart.Height = o.Chart.Height
	}
	if o.Chart.XAxisTitle != "" {
		c.Chart.XAxisTitle = o.Chart.XAxisTitle
	}
	if o.Chart.YAxisTitle != "" {
		c.Chart.YAxisTitle = o.Chart.YAxisTitle
	}
}
