package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/cast"
	"github.com/oraclelang/oracle/history"
)

// CommandPrefix starts every message the router answers.
const CommandPrefix = "算卦"

var mention = regexp.MustCompile(`@\S+\s*`)

const adminHelp = "无效的管理命令，支持的命令：\n" +
	"算卦 设置 次数 [用户ID] [数字]\n" +
	"算卦 重置 [用户ID]\n" +
	"算卦 清除 [用户ID]\n" +
	"算卦 统计"

// Handle answers one chat message from user. It reports false when the
// message is not addressed to the oracle.
func (a *App) Handle(ctx context.Context, user, text string) (string, bool) {
	cleaned := strings.TrimSpace(mention.ReplaceAllString(text, ""))
	args, ok := strings.CutPrefix(cleaned, CommandPrefix)
	if !ok {
		return "", false
	}
	args = strings.TrimSpace(args)
	a.logger.Debug("app: command", "user", user, "args", args)

	if args == "我的ID" {
		return "您的用户ID是: " + user, true
	}
	if a.cfg.IsAdmin(user) && isAdminCommand(args) {
		return a.admin(ctx, args), true
	}

	word, rest := splitWord(args)
	switch word {
	case "历史":
		return a.showHistory(ctx, user, rest), true
	case "数字":
		param, question := splitWord(rest)
		req := oracle.Request{User: user, Question: question, Input: oracle.Input{Method: oracle.MethodDigit}}
		digits, err := cast.ParseDigits(param)
		if err != nil {
			return a.oracle.Explain(req, err), true
		}
		req.Input.Digits = digits
		return a.divine(ctx, req), true
	case "时间":
		req := oracle.Request{User: user, Question: rest, Input: oracle.Input{Method: oracle.MethodTime}}
		return a.divine(ctx, req), true
	}
	req := oracle.Request{User: user, Input: oracle.Input{Method: oracle.MethodText, Text: args}}
	return a.divine(ctx, req), true
}

func (a *App) divine(ctx context.Context, req oracle.Request) string {
	out, err := a.oracle.Divine(ctx, req)
	if err != nil {
		return a.oracle.Explain(req, err)
	}
	var sb strings.Builder
	if out.Record.Question != "" {
		fmt.Fprintf(&sb, "📝 问题: %s\n\n", out.Record.Question)
	} else {
		sb.WriteString("🔮 随缘一卦\n\n")
	}
	sb.WriteString(out.Text)
	fmt.Fprintf(&sb, "\n\n剩余算卦次数: %d/%d", out.Decision.Remaining, out.Decision.Limit)
	return sb.String()
}

// showHistory shows the recent list, or one record when given its number.
func (a *App) showHistory(ctx context.Context, user, arg string) string {
	if arg == "" {
		return a.oracle.History(ctx, user, a.cfg.History.RecentLimit)
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "请输入记录编号，例如：算卦 历史 1"
	}
	rec, err := a.history.Get(ctx, user, n)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Sprintf("没有第 %d 条算卦记录。", n)
	}
	if err != nil {
		a.logger.Error("app: get history failed", "user", user, "error", err)
		return "❌ 获取历史记录时出错，请稍后再试。"
	}
	figure, err := a.interp.Render(rec.Result, a.interp.Style())
	if err != nil {
		return a.oracle.Explain(oracle.Request{User: user}, err)
	}
	return fmt.Sprintf("[%s] %s\n\n%s\n%s",
		rec.CreatedAt.In(a.location).Format(time.DateTime), rec.Question, figure, rec.Summary)
}

func isAdminCommand(args string) bool {
	for _, p := range []string{"设置", "重置", "统计", "清除"} {
		if strings.HasPrefix(args, p) {
			return true
		}
	}
	return false
}

func (a *App) admin(ctx context.Context, args string) string {
	parts := strings.Fields(args)
	now := time.Now()
	switch {
	case parts[0] == "设置" && len(parts) == 4 && parts[1] == "次数":
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < 0 {
			return "次数必须为非负整数（0 表示恢复默认）"
		}
		if err := a.limiter.SetUserQuota(ctx, parts[2], n, now); err != nil {
			a.logger.Error("app: set quota failed", "user", parts[2], "error", err)
			return "❌ 设置失败，请稍后再试。"
		}
		if n == 0 {
			return fmt.Sprintf("用户 %s 的算卦次数上限已恢复为默认 %d 次", parts[2], a.limiter.Limit())
		}
		return fmt.Sprintf("用户 %s 的算卦次数上限已设置为 %d 次", parts[2], n)

	case parts[0] == "重置" && len(parts) == 2:
		if err := a.limiter.ResetUser(ctx, parts[1], now); err != nil {
			a.logger.Error("app: reset failed", "user", parts[1], "error", err)
			return "❌ 重置失败，请稍后再试。"
		}
		return fmt.Sprintf("已重置用户 %s 的算卦次数", parts[1])

	case parts[0] == "清除" && len(parts) == 2:
		if err := a.history.Clear(ctx, parts[1]); err != nil {
			a.logger.Error("app: clear history failed", "user", parts[1], "error", err)
			return "❌ 清除失败，请稍后再试。"
		}
		return fmt.Sprintf("已清除用户 %s 的算卦记录", parts[1])

	case parts[0] == "统计" && len(parts) == 1:
		stats, err := a.limiter.Stats(ctx, now)
		if err != nil {
			a.logger.Error("app: stats failed", "error", err)
			return "❌ 获取统计失败，请稍后再试。"
		}
		return FormatStats(stats, a.limiter.NextReset(now), a.location)
	}
	return adminHelp
}

// FormatStats renders usage statistics for admins.
func FormatStats(s oracle.UsageStats, next time.Time, loc *time.Location) string {
	return fmt.Sprintf("算卦统计:\n总用户数: %d\n活跃用户数: %d\n总使用次数: %d\n下次重置: %s",
		s.Users, s.ActiveUsers, s.TotalUsage, next.In(loc).Format(time.DateTime))
}

// splitWord cuts s at its first run of whitespace.
func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
