package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/cast"
	"github.com/oraclelang/oracle/internal/app"
)

var castFlags struct {
	method string
	digits string
	at     string
}

var castCmd = &cobra.Command{
	Use:   "cast [question...]",
	Short: "Cast a hexagram and print its reading",
	Long: "Cast a hexagram. The text method seeds the casting from the question;\n" +
		"the digit method reads 18 coin digits; the time method uses the clock\n" +
		"or --time.",
	RunE: runCast,
}

func init() {
	f := castCmd.Flags()
	f.StringVarP(&castFlags.method, "method", "m", "", "Casting method: text, digit or time, or 文本/数字/时间 (default text, or digit when --digits is set)")
	f.StringVar(&castFlags.digits, "digits", "", "Coin digits for the digit method, e.g. 789,654,...")
	f.StringVar(&castFlags.at, "time", "", `Moment for the time method, "2006-01-02 15:04" in the configured timezone`)
}

func runCast(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		req, err := castRequest(a.Location(), rootFlags.user, strings.Join(args, " "))
		out := cmd.OutOrStdout()
		if err != nil {
			fmt.Fprintln(out, a.Oracle().Explain(req, err))
			return nil
		}
		res, err := a.Oracle().Divine(ctx, req)
		if err != nil {
			fmt.Fprintln(out, a.Oracle().Explain(req, err))
			return nil
		}
		fmt.Fprintln(out, res.Text)
		fmt.Fprintf(out, "\n剩余算卦次数: %d/%d\n", res.Decision.Remaining, res.Decision.Limit)
		return nil
	})
}

func castRequest(loc *time.Location, user, question string) (oracle.Request, error) {
	req := oracle.Request{User: user, Question: question}
	method, err := oracle.ParseMethod(castFlags.method)
	if err != nil {
		return req, err
	}
	if castFlags.method == "" && castFlags.digits != "" {
		method = oracle.MethodDigit
	}
	req.Input.Method = method
	switch method {
	case oracle.MethodText:
		req.Input.Text = question
	case oracle.MethodDigit:
		digits, err := cast.ParseDigits(castFlags.digits)
		if err != nil {
			return req, err
		}
		req.Input.Digits = digits
	case oracle.MethodTime:
		if castFlags.at != "" {
			t, err := time.ParseInLocation("2006-01-02 15:04", castFlags.at, loc)
			if err != nil {
				return req, fmt.Errorf("parse --time: %v: %w", err, oracle.ErrInvalidInput)
			}
			req.Input.Time = t
		}
	}
	return req, nil
}
