package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateAsset string
	simulatePrice float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "以合成行情模拟一次分析并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateAsset == "" {
			return errors.New("--asset 必须指定")
		}
		if simulatePrice <= 0 {
			return errors.New("--price 必须大于 0")
		}

		return getApp().SimulateAlert(cmd.Context(), simulateAsset, simulatePrice)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateAsset, "asset", "", "资产 ID, 例如 bitcoin")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "模拟用当前价格 (USD)")
}
