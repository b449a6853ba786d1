// arisecli is the interactive status window: a readline REPL over the
// arised HTTP API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"github.com/junhyuk-oh/arise/internal/achievement"
	"github.com/junhyuk-oh/arise/internal/army"
	"github.com/junhyuk-oh/arise/internal/quest"
	"github.com/junhyuk-oh/arise/internal/report"
	"github.com/junhyuk-oh/arise/internal/shop"
	"github.com/junhyuk-oh/arise/internal/skill"
	"github.com/junhyuk-oh/arise/internal/types"
)

const defaultAddr = "127.0.0.1:8999"

var completer = readline.NewPrefixCompleter(
	readline.PcItem("status"),
	readline.PcItem("quests"),
	readline.PcItem("complete"),
	readline.PcItem("army",
		readline.PcItem("templates"),
	),
	readline.PcItem("extract"),
	readline.PcItem("deploy"),
	readline.PcItem("recall"),
	readline.PcItem("destroy"),
	readline.PcItem("report"),
	readline.PcItem("daily"),
	readline.PcItem("weekly"),
	readline.PcItem("shop"),
	readline.PcItem("buy"),
	readline.PcItem("skills"),
	readline.PcItem("cast"),
	readline.PcItem("achievements"),
	readline.PcItem("notifications"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func main() {
	_ = godotenv.Load(".env")

	addr := flag.String("addr", envOr("ARISE_LISTEN_ADDR", defaultAddr), "daemon address")
	flag.Parse()

	client := NewClient(*addr)

	// One-shot mode: `arisecli status` etc.
	if args := flag.Args(); len(args) > 0 {
		if err := dispatch(client, args); err != nil {
			fmt.Fprintf(os.Stderr, "arisecli: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "arise> ",
		HistoryFile:     historyPath(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "arisecli: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("arise — type 'help' for commands, 'exit' to quit")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		args := strings.Fields(strings.TrimSpace(line))
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return
		}
		if err := dispatch(client, args); err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.arise_history"
}

func dispatch(c *Client, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		var st map[string]any
		if err := c.Get("/api/status", &st); err != nil {
			return err
		}
		renderStatus(st)

	case "quests":
		var quests []quest.Quest
		if err := c.Get("/api/quests", &quests); err != nil {
			return err
		}
		renderQuests(quests)

	case "complete":
		if len(rest) != 1 {
			return errors.New("usage: complete <quest-id>")
		}
		var q quest.Quest
		if err := c.Post("/api/quests/"+rest[0]+"/complete", nil, &q); err != nil {
			return err
		}
		fmt.Printf("  quest complete: %s (+%d exp)\n", q.Title, q.ExpReward)

	case "army":
		if len(rest) == 1 && rest[0] == "templates" {
			var opts []army.TemplateOption
			if err := c.Get("/api/army/templates", &opts); err != nil {
				return err
			}
			renderTemplates(opts)
			return nil
		}
		var sum army.Summary
		if err := c.Get("/api/army", &sum); err != nil {
			return err
		}
		renderArmy(sum)

	case "extract":
		if len(rest) != 1 {
			return errors.New("usage: extract <template-id>")
		}
		var agent army.Agent
		if err := c.Post("/api/army/extract", map[string]string{"template_id": rest[0]}, &agent); err != nil {
			return err
		}
		fmt.Printf("  ARISE. %s [%s] joins the shadow army.\n", agent.Name, agent.Rank)

	case "deploy", "recall", "destroy":
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s <agent-id>", cmd)
		}
		var agent army.Agent
		if err := c.Post("/api/army/"+rest[0]+"/"+cmd, nil, &agent); err != nil {
			return err
		}
		fmt.Printf("  %s: %s is now %s\n", cmd, agent.Name, agent.Status)

	case "report":
		if len(rest) != 2 || (rest[1] != "ok" && rest[1] != "fail") {
			return errors.New("usage: report <agent-id> ok|fail")
		}
		var agent army.Agent
		body := map[string]bool{"success": rest[1] == "ok"}
		if err := c.Post("/api/army/"+rest[0]+"/report", body, &agent); err != nil {
			return err
		}
		fmt.Printf("  %s: level %d, loyalty %.1f\n", agent.Name, agent.Level, agent.Loyalty)

	case "daily":
		var rep report.Daily
		if err := c.Get("/api/report?period=daily", &rep); err != nil {
			return err
		}
		renderDaily(rep)

	case "weekly":
		var rep report.Weekly
		if err := c.Get("/api/report?period=weekly", &rep); err != nil {
			return err
		}
		renderWeekly(rep)

	case "shop":
		var resp struct {
			Gold  int            `json:"gold"`
			Items []shop.Listing `json:"items"`
		}
		if err := c.Get("/api/shop", &resp); err != nil {
			return err
		}
		renderShop(resp.Gold, resp.Items)

	case "buy":
		if len(rest) != 1 {
			return errors.New("usage: buy <item-id>")
		}
		var receipt shop.Receipt
		if err := c.Post("/api/shop/buy", map[string]string{"item_id": rest[0]}, &receipt); err != nil {
			return err
		}
		fmt.Printf("  bought %s, %d gold left\n", receipt.Item, receipt.GoldRemaining)

	case "skills":
		var skills []skill.Listing
		if err := c.Get("/api/skills", &skills); err != nil {
			return err
		}
		renderSkills(skills)

	case "cast":
		if len(rest) != 1 {
			return errors.New("usage: cast <skill-id>")
		}
		var cast skill.Cast
		if err := c.Post("/api/skills/cast", map[string]string{"skill_id": rest[0]}, &cast); err != nil {
			return err
		}
		fmt.Printf("  %s activated: %s\n", cast.Skill, cast.Effect)

	case "achievements":
		var entries []achievement.Entry
		if err := c.Get("/api/achievements", &entries); err != nil {
			return err
		}
		renderAchievements(entries)

	case "notifications", "notify":
		var notes []types.Notification
		if err := c.Get("/api/notifications", &notes); err != nil {
			return err
		}
		renderNotifications(notes)

	case "help":
		fmt.Print(`  status                     player overview
  quests                     active quests
  complete <quest-id>        settle a quest as done
  army [templates]           shadow army / extraction templates
  extract <template-id>      raise a shadow soldier
  deploy|recall|destroy <id> manage a soldier
  report <id> ok|fail        record an execution result
  daily                      today's activity report
  weekly                     weekly trends and suggestions
  shop                       item catalog and gold
  buy <item-id>              purchase an item
  skills                     skill list and cooldowns
  cast <skill-id>            activate a skill
  achievements               achievement progress
  notifications              drain pending system messages
  exit
`)

	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return nil
}
