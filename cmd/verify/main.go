// Command verify judges a single solution directory against a task and
// prints the verdict as yaml.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/koding/multiconfig"
	"github.com/mailjudge/go-verifier/judger"
	"github.com/mailjudge/go-verifier/language"
	"github.com/mailjudge/go-verifier/pkg/apparmor"
	"github.com/mailjudge/go-verifier/problem"
	"github.com/mailjudge/go-verifier/report"
	"github.com/mailjudge/go-verifier/runner"
	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Config defines the command line of verify
type Config struct {
	Task         string        `flagUsage:"specifies the task directory" required:"true"`
	Language     string        `flagUsage:"specifies the language of the solution" default:"C++"`
	Solution     string        `flagUsage:"specifies the solution directory" required:"true"`
	ScratchDir   string        `flagUsage:"specifies the scratch directory" default:"temp"`
	LanguageConf string        `flagUsage:"specifies language configuration file" default:"languages.yaml"`
	ProfileDir   string        `flagUsage:"specifies apparmor profile directory" default:"/etc/apparmor.d"`
	CompileLimit time.Duration `flagUsage:"specifies the wall clock limit of the compiler" default:"30s"`
	Message      bool          `flagUsage:"print the result message instead of yaml"`
	Debug        bool          `flagUsage:"print debug logs"`
}

// output is the yaml document printed for a verdict
type output struct {
	Task           string   `yaml:"task"`
	Language       string   `yaml:"language"`
	Files          []string `yaml:"files"`
	Status         string   `yaml:"status"`
	Code           int      `yaml:"code"`
	FailedTest     int      `yaml:"failedTest"`
	CompilerOutput string   `yaml:"compilerOutput,omitempty"`
	Stderr         string   `yaml:"stderr,omitempty"`
	Time           string   `yaml:"time"`
	Memory         string   `yaml:"memory"`
}

func main() {
	var conf Config
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{Prefix: "VF", CamelCase: true},
		&multiconfig.FlagLoader{CamelCase: true, EnvPrefix: "VF"},
	)
	if err := cl.Load(&conf); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	if err := multiconfig.MultiValidator(&multiconfig.RequiredValidator{}).Validate(&conf); err != nil {
		log.Fatalln("invalid config ", err)
	}

	logger := zap.NewNop()
	if conf.Debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	if unix.Getuid() != 0 {
		log.Fatalln("You should run verify with root privileges!")
	}

	langs, err := language.Load(conf.LanguageConf)
	if os.IsNotExist(err) {
		langs, err = language.Default(), nil
	}
	if err != nil {
		log.Fatalln("load language config failed ", err)
	}
	lang, err := langs.Get(conf.Language)
	if err != nil {
		log.Fatalln(err)
	}
	task, err := problem.Load(conf.Task)
	if err != nil {
		log.Fatalln("load task failed ", err)
	}
	files, err := lang.Collect(conf.Solution)
	if err != nil {
		log.Fatalln("collect solution failed ", err)
	}

	r, err := runner.New(logger)
	if err != nil {
		log.Fatalln("create runner failed ", err)
	}
	tools := apparmor.NewTools()
	tools.ProfileDir = conf.ProfileDir
	j, err := judger.New(judger.Config{
		ScratchDir:       conf.ScratchDir,
		CompileTimeLimit: conf.CompileLimit,
		Runner:           r,
		Confiner:         apparmor.NewManager(tools, logger),
		Logger:           logger,
	})
	if err != nil {
		log.Fatalln("create judger failed ", err)
	}

	var rt types.Result
	if len(files) == 0 {
		rt = types.Result{Status: types.StatusInvalidSolutionFormatError, FailedTest: types.NoFailedTest}
	} else {
		rt = j.Judge(context.Background(), lang, task, files)
	}
	if rt.Error != "" {
		logger.Warn("internal error", zap.String("error", rt.Error))
	}

	if conf.Message {
		fmt.Print(report.Message(&types.Submission{Task: task.Name, Language: lang.Name}, rt))
		return
	}
	b, err := yaml.Marshal(newOutput(task, lang, files, rt))
	if err != nil {
		log.Fatalln("encode result failed ", err)
	}
	os.Stdout.Write(b)
}

func newOutput(task *problem.Config, lang *language.Language, files []string, rt types.Result) output {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	return output{
		Task:           task.Name,
		Language:       lang.Name,
		Files:          names,
		Status:         rt.Status.String(),
		Code:           int(rt.Status),
		FailedTest:     rt.FailedTest,
		CompilerOutput: rt.CompilerOutput,
		Stderr:         rt.Stderr,
		Time:           rt.Time.String(),
		Memory:         runner.Size(rt.Memory).String(),
	}
}
