package browser

import (
	"context"
	"encoding/json"
	"fmt"
)

// EvaluateTool runs JavaScript in the active tab.
type EvaluateTool struct {
	manager *TabManager
}

// NewEvaluateTool creates the browser_evaluate tool.
func NewEvaluateTool(manager *TabManager) *EvaluateTool {
	return &EvaluateTool{manager: manager}
}

func (t *EvaluateTool) Name() string { return "browser_evaluate" }

func (t *EvaluateTool) Description() string {
	return `Run a JavaScript expression or function in the active tab and return its JSON result. Input: the code, or {"code": "..."}. Request approval before changing page state.`
}

// Invoke evaluates the code and formats the result.
func (t *EvaluateTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Code string `json:"code"`
	}
	if err := decodeInput(input, &args, &args.Code); err != nil {
		return "", err
	}
	if args.Code == "" {
		return "", fmt.Errorf("JavaScript code is required")
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}

	result, err := tab.Evaluate(args.Code)
	if err != nil {
		return "", err
	}
	return "Result:\n" + formatEvaluateResult(result), nil
}

func formatEvaluateResult(result interface{}) string {
	if result == nil {
		return "undefined"
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}
