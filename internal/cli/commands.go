package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/reoring/jsongraph"
	"github.com/reoring/jsongraph/i18n"
	"github.com/reoring/jsongraph/wire"
)

const defaultIndent = "  "

// errIssues signals that check found problems; they have been printed already.
var errIssues = errors.New("document has issues")

func (c *CLI) fmtCommand() *cobra.Command {
	var (
		from    string
		meta    string
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Re-indent a document, keeping its syntax",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro, wo, err := c.options(from, "", meta)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			ro.Syntax = detect(data, ro.Syntax)
			wo.Syntax = ro.Syntax
			c.indent(cmd.OutOrStdout(), &wo, compact, true)
			return c.format(cmd.OutOrStdout(), data, ro, wo)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input syntax: auto, json, relaxed or yaml")
	cmd.Flags().StringVar(&meta, "meta", "", "meta key spelling: long or short")
	cmd.Flags().BoolVar(&compact, "compact", false, "write without indentation")
	return cmd
}

func (c *CLI) convertCommand() *cobra.Command {
	var (
		from    string
		to      string
		meta    string
		indent  string
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Re-emit a document in another syntax or meta key spelling",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro, wo, err := c.options(from, to, meta)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if indent != "" {
				wo.Indent = indent
			}
			c.indent(cmd.OutOrStdout(), &wo, compact, false)
			return c.format(cmd.OutOrStdout(), data, ro, wo)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input syntax: auto, json, relaxed or yaml")
	cmd.Flags().StringVar(&to, "to", "", "output syntax: json, relaxed or yaml")
	cmd.Flags().StringVar(&meta, "meta", "", "meta key spelling: long or short")
	cmd.Flags().StringVar(&indent, "indent", "", "indent unit (default two spaces on a terminal)")
	cmd.Flags().BoolVar(&compact, "compact", false, "write without indentation")
	return cmd
}

func (c *CLI) checkCommand() *cobra.Command {
	var (
		from    string
		lang    string
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Report malformed structure, duplicate keys and dangling references",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro, _, err := c.options(from, "", "")
			if err != nil {
				return err
			}
			var tr i18n.Translator
			if explain {
				cfg, err := loadConfig(c.configPath)
				if err != nil {
					return err
				}
				if tr, err = cfg.Translator(lang); err != nil {
					return err
				}
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return c.check(cmd.OutOrStdout(), data, ro, tr)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input syntax: auto, json, relaxed or yaml")
	cmd.Flags().BoolVar(&explain, "explain", false, "append a title for each issue code")
	cmd.Flags().StringVar(&lang, "lang", "", "language of --explain titles: en or ja")
	return cmd
}

// options merges the config file with command-line overrides.
func (c *CLI) options(from, to, meta string) (jsongraph.ReadOpt, jsongraph.WriteOpt, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return jsongraph.ReadOpt{}, jsongraph.WriteOpt{}, err
	}
	if from != "" {
		cfg.Read.Syntax = from
	}
	if to != "" {
		cfg.Write.Syntax = to
	}
	if meta != "" {
		cfg.Write.Meta = meta
	}
	ro, err := cfg.ReadOpt()
	if err != nil {
		return ro, jsongraph.WriteOpt{}, err
	}
	wo, err := cfg.WriteOpt()
	if err != nil {
		return ro, wo, err
	}
	ro.Logger, wo.Logger = c.Logger, c.Logger
	return ro, wo, nil
}

// indent settles the indent unit: --compact wins, then an explicit unit, then
// two spaces when writing to a terminal (or always, for fmt).
func (c *CLI) indent(w io.Writer, wo *jsongraph.WriteOpt, compact, always bool) {
	switch {
	case compact:
		wo.Indent = ""
	case wo.Indent != "":
	case always || c.isTerminal(w):
		wo.Indent = defaultIndent
	}
}

func (c *CLI) isTerminal(w io.Writer) bool {
	if c.pretty != nil {
		return *c.pretty
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *CLI) format(w io.Writer, data []byte, ro jsongraph.ReadOpt, wo jsongraph.WriteOpt) error {
	p := newProgress(c.Logger)
	out, err := jsongraph.Format(data, ro, wo)
	if err != nil {
		return err
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	p.done(fmt.Sprintf("formatted %d bytes", len(data)))
	return nil
}

// check lists every problem found in data, one per line. With a translator
// each line gains a fourth column titling the issue code.
func (c *CLI) check(w io.Writer, data []byte, ro jsongraph.ReadOpt, tr i18n.Translator) error {
	p := newProgress(c.Logger)
	var problems []*jsongraph.Error
	if dups, err := jsongraph.DetectDuplicateKeys(data, ro, 0); err == nil {
		problems = append(problems, dups...)
	}
	root, err := jsongraph.ReadNodes(data, ro)
	if err != nil {
		if e, ok := jsongraph.AsError(err); ok {
			problems = append(problems, e)
		} else {
			return err
		}
	}
	ids, refs := 0, 0
	if err == nil {
		_ = wire.Walk(root, func(n *wire.Node) error {
			if n.HasID {
				ids++
			}
			if n.HasRef {
				refs++
			}
			return nil
		})
		for _, id := range wire.Dangling(root) {
			problems = append(problems, &jsongraph.Error{
				Kind:    jsongraph.KindUnresolvedReference,
				Path:    "/",
				Message: fmt.Sprintf("no node with id %d", id),
				Ref:     id,
				Offset:  -1,
			})
		}
	}
	p.done(fmt.Sprintf("checked %d ids, %d refs", ids, refs))
	if len(problems) == 0 {
		fmt.Fprintf(w, "ok: %d ids, %d refs\n", ids, refs)
		return nil
	}
	for _, e := range problems {
		if tr != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Kind.Code(), e.Path, e.Message, tr.Message(e.Kind.Code()))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Kind.Code(), e.Path, e.Message)
	}
	return errIssues
}

// detect resolves SyntaxAuto to the concrete syntax of data so fmt can
// write it back unchanged.
func detect(data []byte, syn jsongraph.Syntax) jsongraph.Syntax {
	if syn != jsongraph.SyntaxAuto {
		return syn
	}
	if s := jsongraph.DetectSyntax(data); s != jsongraph.SyntaxAuto {
		return s
	}
	if _, err := jsongraph.ReadNodes(data, jsongraph.ReadOpt{Syntax: jsongraph.SyntaxJSON}); err != nil {
		return jsongraph.SyntaxRelaxed
	}
	return jsongraph.SyntaxJSON
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
