package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/insn"
)

func newDisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dis <class> [method]",
		Short: "Disassemble the methods of a class file",
		Long: `Dis prints the instructions of every method of a class, or only of the
methods with the given name. A class inside a jar is addressed as
game.jar!path/to/Class.class.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readClass(args[0])
			if err != nil {
				return err
			}
			cls, err := classfile.Parse(data)
			if err != nil {
				return err
			}
			var method string
			if len(args) == 2 {
				method = args[1]
			}
			return disassemble(cmd.OutOrStdout(), cls, method)
		},
	}
}

// readClass reads a class file, or a class entry of a jar.
func readClass(path string) ([]byte, error) {
	jar, entry, ok := strings.Cut(path, "!")
	if !ok {
		return os.ReadFile(path)
	}
	zr, err := zip.OpenReader(jar)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	f, err := zr.Open(strings.TrimPrefix(entry, "/"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func disassemble(w io.Writer, cls *classfile.Class, method string) error {
	fmt.Fprintf(w, "%s %s extends %s (version %d.%d)\n", bold("class"), cls.Name, cls.Super, cls.Major, cls.Minor)
	found := false
	for _, m := range cls.Methods {
		if method != "" && m.Name != method && m.Name+m.Desc != method {
			continue
		}
		found = true
		fmt.Fprintf(w, "\n%s%s\n", bold(m.Name), m.Desc)
		code, err := cls.DecodeCode(m)
		if err != nil {
			fmt.Fprintf(w, "    %s\n", yellow(err.Error()))
			continue
		}
		fmt.Fprintf(w, "    max_stack=%d max_locals=%d\n", code.MaxStack, code.MaxLocals)
		fmt.Fprint(w, insn.Disassemble(code.Insns))
		for _, h := range code.Handlers {
			catch := h.Catch
			if catch == "" {
				catch = "any"
			}
			fmt.Fprintf(w, "    try L%d..L%d -> L%d %s\n", h.Start, h.End, h.Handler, catch)
		}
	}
	if !found {
		return fmt.Errorf("no method %q in %s", method, cls.Name)
	}
	return nil
}
