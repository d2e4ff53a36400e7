package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webdedesign/vergiai/internal/chat"
	"github.com/webdedesign/vergiai/internal/storage"
)

var streamReplies bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the ingested documents interactively",
	Long: `Starts a conversation on stdin. Every answer is grounded in the retrieved
document pages and followed by its sources.

Type "sil", "temizle" or "reset" to start over and "q", "exit" or "çıkış" to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	chatCmd.Flags().BoolVar(&streamReplies, "stream", false, "print answers as they are generated")
	askCmd.Flags().BoolVar(&streamReplies, "stream", false, "print the answer as it is generated")
}

func newSession(ctx context.Context, a *app) (*chat.Session, storage.Store, error) {
	answerer, err := a.newAnswerer()
	if err != nil {
		return nil, nil, err
	}
	store, err := a.openReadStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	session := chat.NewSession(a.newRetriever(store), answerer,
		chat.WithPrompts(a.cfg.Answer.GroundedPrompt, a.cfg.Answer.FallbackPrompt),
		chat.WithMaxExchanges(a.cfg.Answer.MaxExchanges),
		chat.WithLogger(a.logger),
	)
	return session, store, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	session, store, err := newSession(ctx, a)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	printStoreSummary(ctx, out, a, store)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nSoru: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case chat.IsExit(line):
			return nil
		case chat.IsReset(line):
			session.Reset()
			fmt.Fprintln(out, "Sohbet temizlendi.")
			continue
		}

		if err := answerQuestion(ctx, out, session, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Error("answer failed", zap.Error(err))
			fmt.Fprintf(out, "Hata: %v\n", err)
		}
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	session, store, err := newSession(ctx, a)
	if err != nil {
		return err
	}
	defer store.Close()

	return answerQuestion(ctx, cmd.OutOrStdout(), session, strings.Join(args, " "))
}

// answerQuestion prints the reply to question followed by its sources.
func answerQuestion(ctx context.Context, out io.Writer, session *chat.Session, question string) error {
	var reply chat.Reply

	if streamReplies {
		stream, err := session.Stream(ctx, question)
		if err != nil {
			return err
		}
		defer stream.Close()

		fmt.Fprintln(out)
		for stream.Next() {
			fmt.Fprint(out, stream.Delta())
		}
		fmt.Fprintln(out)
		if err := stream.Err(); err != nil {
			return err
		}
		reply = stream.Reply()
	} else {
		var err error
		reply, err = session.Ask(ctx, question)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", reply.Text)
	}

	if reply.Grounded() {
		fmt.Fprintf(out, "\nKaynak: %s\n", chat.FormatSources(reply.Sources()))
	} else {
		fmt.Fprintln(out, "\nKaynak: yüklenen belgelerde ilgili bölüm bulunamadı")
	}
	return nil
}

func printStoreSummary(ctx context.Context, out io.Writer, a *app, store storage.Store) {
	total, err := store.Count(ctx)
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		a.logger.Warn("store unavailable, answers will not be grounded", zap.Error(err))
		fmt.Fprintln(out, "Belge deposuna ulaşılamadı; cevaplar belgelere dayanmayacak.")
	case err != nil:
		a.logger.Warn("counting stored entries failed", zap.Error(err))
	case total == 0:
		fmt.Fprintln(out, "Henüz belge yüklenmemiş. Önce `vergiai ingest` çalıştırın.")
	default:
		fmt.Fprintf(out, "%s deposunda %d parça yüklü.\n", a.cfg.Store.Backend, total)
	}
}
