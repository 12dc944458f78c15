/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eslsoft/vidya/pkg/normalize"
	"github.com/eslsoft/vidya/pkg/translit"
)

// translitCmd is a debug helper for the lexicon derivations.
var translitCmd = &cobra.Command{
	Use:   "translit <text>",
	Short: "打印罗马转写文本的天城体与规范化形式",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "input:      %s\n", text)
		fmt.Fprintf(out, "script:     %s\n", translit.Transliterate(text))
		fmt.Fprintf(out, "normalized: %s\n", normalize.Normalize(text))
		fmt.Fprintf(out, "key:        %s\n", normalize.Key(text))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translitCmd)
}
