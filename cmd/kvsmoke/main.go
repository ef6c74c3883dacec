// Copyright 2021 hardcore-os Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License")
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hardcore-os/minikv"
	"github.com/hardcore-os/minikv/utils/log"
	"github.com/pkg/errors"
)

// main runs the put, overwrite, delete and lookup sequence against a store.
// go run ./cmd/kvsmoke -dir ./testdb
func main() {
	dir := flag.String("dir", "./testdb", "database directory")
	level := flag.String("log-level", "info", "log level")
	jsonLog := flag.Bool("json", false, "log as json")
	flag.Parse()

	lt := log.ConsoleLogger
	if *jsonLog {
		lt = log.JSONLogger
	}
	lvl, err := log.ParseLogLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad -log-level %q: %v\n", *level, err)
		os.Exit(2)
	}
	log.Init(log.Options{LogLevel: lvl, Type: lt, Out: os.Stderr})

	if err := run(*dir); err != nil {
		log.Root.Error().Err(err).Msg("smoke run failed")
		os.Exit(1)
	}
}

func run(dir string) error {
	opt := minikv.NewDefaultOptions()
	opt.WorkDir = dir
	db, err := minikv.Open(opt)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Root.Error().Err(err).Msg("close")
		}
	}()

	key, value := []byte("threefirefire"), []byte("threefirefire@gmail.com")
	if err := db.Put(nil, key, value); err != nil {
		return err
	}
	got, err := db.Get(key)
	if err != nil {
		return err
	}
	fmt.Println(string(got))

	key2 := []byte("threefire")
	if err := db.Put(nil, key, key2); err != nil {
		return err
	}
	if got, err = db.Get(key); err != nil {
		return err
	}
	fmt.Printf("%s==%s\n", key, got)

	if err := db.Delete(nil, key); err != nil {
		return err
	}
	// key2 was only stored as a value
	if err := expectNotFound(db, key2); err != nil {
		return err
	}
	return expectNotFound(db, key)
}

// expectNotFound fails unless key has no live value.
func expectNotFound(db *minikv.DB, key []byte) error {
	v, err := db.Get(key)
	switch {
	case err == nil:
		return errors.Errorf("%s: expected NotFound, got value %q", key, v)
	case !minikv.IsNotFound(err):
		return errors.Wrapf(err, "get %s", key)
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", key, minikv.StatusOf(err))
	return nil
}
