package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/windmark/prism"
	"github.com/windmark/prism/api"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/stream"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message to a provider and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringP("provider", "p", "openai", "provider identifier")
	chatCmd.Flags().StringP("model", "m", "", "model override")
	chatCmd.Flags().Bool("no-stream", false, "wait for the full reply instead of streaming")
	chatCmd.Flags().Bool("no-tools", false, "skip the tool pre-pass")
	chatCmd.Flags().Bool("render", false, "render the final reply as markdown")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	noStream, _ := cmd.Flags().GetBool("no-stream")
	noTools, _ := cmd.Flags().GetBool("no-tools")
	render, _ := cmd.Flags().GetBool("render")
	message := strings.Join(args, " ")

	res := api.NewResources(nil)
	defer res.Close()

	p, err := prism.NewProvider(id, provider.FromEnv(id), res.HTTP)
	if err != nil {
		return err
	}

	messages := []provider.Message{{Role: provider.RoleUser, Content: message}}
	if !noTools {
		if injected, ok := res.Orch.Augment(cmd.Context(), message); ok {
			fmt.Fprintln(os.Stderr, color.YellowString("tool: ")+firstLine(injected.Content))
			messages = append([]provider.Message{injected}, messages...)
		}
	}

	req := provider.Request{Messages: messages, Temperature: 0.7, MaxTokens: 1024, Model: model}
	if debug {
		pp.Fprintln(os.Stderr, req)
	}

	var reply string
	if noStream {
		resp, err := p.Chat(cmd.Context(), req)
		if err != nil {
			return err
		}
		reply = resp.Content
		if !render {
			fmt.Println(reply)
		}
	} else {
		reply, err = streamReply(cmd, p, req)
		if err != nil {
			return err
		}
	}

	if render {
		rendered, err := glamour.Render(reply, "dark")
		if err != nil {
			slog.Debug("markdown render failed", slog.Any("error", err))
			fmt.Println(reply)
			return nil
		}
		fmt.Print(rendered)
	}
	return nil
}

func streamReply(cmd *cobra.Command, p provider.Provider, req provider.Request) (string, error) {
	body, err := p.Stream(cmd.Context(), req)
	if err != nil {
		return "", err
	}

	norm := stream.NewNormalizer(body)
	defer norm.Close()

	fmt.Print(color.MagentaString(p.Name()) + ": ")

	var sb strings.Builder
	for {
		chunk, err := norm.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sb.String(), err
		}
		if chunk.Done {
			continue
		}
		fmt.Print(chunk.Content)
		sb.WriteString(chunk.Content)
	}
	fmt.Println()
	return sb.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
