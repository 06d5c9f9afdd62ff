// pkg/dump/sftp.go

package dump

import (
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// session is one ssh connection with its sftp client and, if used, the
// connection to the ssh agent.
type session struct {
	conn   *ssh.Client
	client *sftp.Client
	agent  net.Conn
}

func (s *session) close() error {
	if s.client != nil {
		_ = s.client.Close()
	}
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	if s.agent != nil {
		_ = s.agent.Close()
	}
	return err
}

// remoteFile is a file on an sftp server; closing it also hangs up.
type remoteFile struct {
	*sftp.File
	sess *session
}

func (f *remoteFile) Close() error {
	err := f.File.Close()
	if cerr := f.sess.close(); err == nil {
		err = cerr
	}
	return err
}

// authMethods collects password, agent and key authentication. The agent
// connection, if any, is stored in sess.
func authMethods(u *url.URL, sess *session) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if pass, ok := u.User.Password(); ok {
		methods = append(methods, ssh.Password(pass))
	} else if pass := os.Getenv("SFTP_PASSWORD"); pass != "" {
		methods = append(methods, ssh.Password(pass))
	}
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			sess.agent = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			logger.Debugf("ssh agent %s: %s", sock, err)
		}
	}
	home, _ := os.UserHomeDir()
	var signers []ssh.Signer
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		pem, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		s, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			logger.Debugf("skip key %s: %s", name, err)
			continue
		}
		signers = append(signers, s)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	return methods
}

func hostKeyCallback() ssh.HostKeyCallback {
	home, _ := os.UserHomeDir()
	cb, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		logger.Warnf("load known_hosts: %s, the host key of the sftp server is not verified", err)
		return ssh.InsecureIgnoreHostKey()
	}
	return cb
}

// parseRemote splits sftp://[user[:password]@]host[:port]/path.
func parseRemote(path string) (*url.URL, string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, "", err
	}
	if u.Hostname() == "" || u.Path == "" || u.Path == "/" {
		return nil, "", errors.Errorf("invalid sftp URL %q", path)
	}
	port := u.Port()
	if port == "" {
		port = "22"
	}
	return u, net.JoinHostPort(u.Hostname(), port), nil
}

func dialRemote(path string) (*session, string, error) {
	u, addr, err := parseRemote(path)
	if err != nil {
		return nil, "", err
	}
	user := u.User.Username()
	if user == "" {
		user = os.Getenv("USER")
	}
	sess := &session{}
	conf := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods(u, sess),
		HostKeyCallback: hostKeyCallback(),
	}
	sess.conn, err = ssh.Dial("tcp", addr, conf)
	if err != nil {
		_ = sess.close()
		return nil, "", errors.Wrapf(err, "ssh %s", addr)
	}
	sess.client, err = sftp.NewClient(sess.conn)
	if err != nil {
		_ = sess.close()
		return nil, "", errors.Wrapf(err, "sftp %s", addr)
	}
	logger.Debugf("connected to sftp://%s@%s", user, addr)
	return sess, u.Path, nil
}

func openRemote(path string) (*remoteFile, error) {
	sess, p, err := dialRemote(path)
	if err != nil {
		return nil, err
	}
	f, err := sess.client.Open(p)
	if err != nil {
		_ = sess.close()
		return nil, err
	}
	return &remoteFile{f, sess}, nil
}

func createRemote(path string) (*remoteFile, error) {
	sess, p, err := dialRemote(path)
	if err != nil {
		return nil, err
	}
	f, err := sess.client.Create(p)
	if err != nil {
		_ = sess.close()
		return nil, err
	}
	return &remoteFile{f, sess}, nil
}
