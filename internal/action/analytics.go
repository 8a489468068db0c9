package action

import (
	"context"
	"fmt"
	"math/rand"
)

var analysisCategories = []string{"Category A", "Category B", "Category C"}

func (s *Simulator) FetchAnalysisData(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 4); err != nil {
		return nil, err
	}

	dataPoints := make([]map[string]any, 0, 10)
	for i := 0; i < 10; i++ {
		dataPoints = append(dataPoints, map[string]any{
			"date":     fmt.Sprintf("2024-03-%02d", i+1),
			"value":    rand.Intn(91) + 10,
			"category": analysisCategories[rand.Intn(len(analysisCategories))],
		})
	}

	return map[string]any{
		"success":     true,
		"metric":      params["metric"],
		"time_range":  params["time_range"],
		"grouping":    params["grouping"],
		"data_points": dataPoints,
	}, nil
}

func (s *Simulator) GenerateAnalysis(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 3); err != nil {
		return nil, err
	}

	// Task params are fixed at plan time, so the fetch step's output is not
	// available here; the simulator re-fetches instead.
	fetched, err := s.FetchAnalysisData(ctx, params)
	if err != nil {
		return nil, err
	}
	dataPoints, _ := fetched["data_points"].([]map[string]any)

	total, maximum, minimum := 0, 0, 0
	for i, point := range dataPoints {
		value, _ := point["value"].(int)
		total += value
		if i == 0 || value > maximum {
			maximum = value
		}
		if i == 0 || value < minimum {
			minimum = value
		}
	}
	average := 0.0
	if len(dataPoints) > 0 {
		average = float64(total) / float64(len(dataPoints))
	}

	byCategory := map[string]int{}
	if grouping, _ := params["grouping"].(string); grouping == "category" {
		for _, point := range dataPoints {
			category, _ := point["category"].(string)
			value, _ := point["value"].(int)
			byCategory[category] += value
		}
	}

	return map[string]any{
		"success":     true,
		"metric":      params["metric"],
		"time_range":  params["time_range"],
		"total":       total,
		"average":     average,
		"maximum":     maximum,
		"minimum":     minimum,
		"by_category": byCategory,
		"data_points": dataPoints,
	}, nil
}

func (s *Simulator) PresentAnalysisResults(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := s.wait(ctx, 1); err != nil {
		return nil, err
	}

	format := stringParam(params, "format")
	if format == "" {
		format = "chart"
	}
	chartType := "table"
	if format == "chart" {
		chartType = "bar"
	}

	return map[string]any{
		"success": true,
		"metric":  params["metric"],
		"format":  format,
		"rendering_instructions": map[string]any{
			"chart_type": chartType,
			"title":      fmt.Sprintf("Analysis of %v", params["metric"]),
			"x_axis":     "Date",
			"y_axis":     "Value",
		},
	}, nil
}
