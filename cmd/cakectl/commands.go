package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/cakeshop/internal/repository"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建 orders 与 out_of_stock_items 表",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "探测数据库连通性并统计订单",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			status := app.Guard.Probe(cmd.Context())
			out := map[string]interface{}{
				"connected": status.Connected,
				"latency":   status.Latency.String(),
			}
			if !status.Connected {
				out["error"] = status.Error
				_ = printJSON(cmd.OutOrStdout(), out)
				return repository.ErrStoreUnavailable
			}
			count, err := app.Orders.Count(cmd.Context())
			if err != nil {
				return err
			}
			recent, err := app.Orders.RecentIDs(cmd.Context(), 5)
			if err != nil {
				return err
			}
			out["ordersCount"] = count
			out["sampleOrderIds"] = recent
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func ordersCmd() *cobra.Command {
	orders := &cobra.Command{Use: "orders", Short: "查询订单"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "按创建时间列出全部订单",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			all, err := app.OrderSvc.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), all)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTOTAL\tPAYMENT\tSTATUS\tRAZORPAY")
			for _, o := range all {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Total, o.PaymentStatus, o.OrderStatus, o.GatewayOrderID())
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "按订单号或 Razorpay 订单号查询",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			order, err := app.OrderSvc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}

	orders.AddCommand(list, get)
	return orders
}

func flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-transient",
		Short: "把兜底存储中的 TEMP 订单写入数据库（需 redis 后端）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Config.Transient.Backend != "redis" {
				return fmt.Errorf("transient backend %q is process-local; nothing to flush from the CLI", app.Config.Transient.Backend)
			}
			res, err := app.Flusher.FlushOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
